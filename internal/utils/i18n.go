package utils

// Supported locales; Khmer is the default audience.
var Locales = []string{"km", "en"}

const DefaultLocale = "km"

var translations = map[string]map[string]string{
	"en": {
		"health.ok":         "ok",
		"submit.ok":         "Submission successful",
		"submit.incomplete": "Please answer all questions",
		"submit.failed":     "Error saving data, please try again",
		"gate.expired":      "This link has expired",
		"gate.denied":       "Access denied: public results are not enabled for this teacher",
		"dashboard.nodata":  "No data for the selected filters",
		"auth.invalid":      "Invalid username or password",
		"store.unavailable": "Could not reach the data source; showing the last saved data",
		"cache.cleared":     "Local data cleared. Data in Google Sheets is not affected",
	},
	"km": {
		"health.ok":         "ល្អ",
		"submit.ok":         "ការវាយតម្លៃត្រូវបានបញ្ជូនជោគជ័យ!",
		"submit.incomplete": "សូមឆ្លើយសំណួរទាំងអស់",
		"submit.failed":     "មានបញ្ហាក្នុងការរក្សាទុកទិន្នន័យ។ សូមព្យាយាមម្តងទៀត។",
		"gate.expired":      "តំណភ្ជាប់នេះផុតកំណត់ហើយ",
		"gate.denied":       "មិនមានសិទ្ធិចូលមើលលទ្ធផលនេះទេ",
		"dashboard.nodata":  "មិនមានទិន្នន័យសម្រាប់ការជ្រើសរើសនេះទេ",
		"auth.invalid":      "ឈ្មោះអ្នកប្រើ ឬពាក្យសម្ងាត់មិនត្រឹមត្រូវ",
		"store.unavailable": "មិនអាចភ្ជាប់ទៅប្រភពទិន្នន័យបានទេ",
		"cache.cleared":     "ទិន្នន័យក្នុងម៉ាស៊ីននេះត្រូវបានលុប។ ទិន្នន័យក្នុង Google Sheets មិនត្រូវបានលុបទេ",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}
