package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/teacheval/internal/models"
	"github.com/soaringjerry/teacheval/internal/services"
)

func newRootCmd(open appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "evalctl",
		Short:         "Teacher evaluation reports and link administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newReportCmd(open),
		newExportCmd(open),
		newLinkCmd(open),
		newPublishCmd(open),
		newCacheCmd(open),
	)
	return root
}

// withApp opens the app for the duration of one command.
func withApp(open appFactory, fn func(a *app) error) error {
	a, err := open()
	if err != nil {
		return err
	}
	if a.close != nil {
		defer a.close()
	}
	return fn(a)
}

type filterFlags struct {
	teacher, term, year, month, yearLevel, team string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.teacher, "teacher", "", "teacher name (required)")
	cmd.Flags().StringVar(&f.term, "term", services.All, "term")
	cmd.Flags().StringVar(&f.year, "year", services.All, "calendar year")
	cmd.Flags().StringVar(&f.month, "month", services.All, "calendar month 1-12")
	cmd.Flags().StringVar(&f.yearLevel, "year-level", services.All, "year level")
	cmd.Flags().StringVar(&f.team, "team", services.All, "team")
	_ = cmd.MarkFlagRequired("teacher")
}

func (f *filterFlags) filter() (services.Filter, error) {
	out := services.Filter{TeacherName: f.teacher, Term: f.term, YearLevel: f.yearLevel, Team: f.team}
	var err error
	if out.Year, err = services.ParseYear(f.year); err != nil {
		return out, err
	}
	if out.Month, err = services.ParseMonth(f.month); err != nil {
		return out, err
	}
	return out, nil
}

func newReportCmd(open appFactory) *cobra.Command {
	var ff filterFlags
	var refresh, asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the graded report for a teacher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			return withApp(open, func(a *app) error {
				d, err := a.results.Dashboard(cmd.Context(), f, refresh)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(d)
				}
				return printReport(cmd.OutOrStdout(), d)
			})
		},
	}
	ff.register(cmd)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-fetch submissions instead of using the local cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the dashboard as JSON")
	return cmd
}

func printReport(w io.Writer, d *services.Dashboard) error {
	if d.StoreUnavailable {
		fmt.Fprintln(w, "warning: spreadsheet unavailable, showing cached submissions")
	}
	fmt.Fprintf(w, "Teacher: %s\nSubmissions: %d of %d\n", d.Filter.TeacherName, d.Count, d.TeacherTotal)
	if d.NoData {
		fmt.Fprintln(w, "No data for the selected filters.")
		return nil
	}
	r := d.Report
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSCORE\tGRADE")
	for _, c := range r.Categories {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%s\n", c.Title, c.Score, c.Grade)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	result := "FAIL"
	if r.Passed {
		result = "PASS"
	}
	fmt.Fprintf(w, "Final: %.2f%%  Grade %s  GPA %.1f  %s\n", r.FinalPercentage, r.Grade, r.GPA, result)
	if d.ReliabilityN > 1 {
		fmt.Fprintf(w, "Cronbach alpha: %.3f (n=%d)\n", d.Reliability, d.ReliabilityN)
	}
	return nil
}

func newExportCmd(open appFactory) *cobra.Command {
	var ff filterFlags
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered submissions as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			return withApp(open, func(a *app) error {
				name, data, err := a.results.Export(cmd.Context(), f)
				if err != nil {
					return err
				}
				if out == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if out == "" {
					out = name
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("-" for stdout; default Evaluation_<teacher>_<date>.csv)`)
	return cmd
}

func newLinkCmd(open appFactory) *cobra.Command {
	var info models.TeacherInfo
	var minutes int
	var shorten bool
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Generate a form link and QR code address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(open, func(a *app) error {
				link, err := a.links.FormLink(cmd.Context(), services.FormLinkRequest{Info: info, ValidMinutes: minutes, Shorten: shorten})
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "url:   %s\n", link.URL)
				if link.ShortURL != "" {
					fmt.Fprintf(w, "short: %s\n", link.ShortURL)
				}
				fmt.Fprintf(w, "qr:    %s\n", link.QRCodeURL)
				if link.ExpiresAt > 0 {
					fmt.Fprintf(w, "exp:   %d\n", link.ExpiresAt)
				}
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&info.Name, "teacher", "", "teacher name (required)")
	fl.StringVar(&info.Subject, "subject", "", "subject")
	fl.StringVar(&info.Room, "room", "", "room")
	fl.StringVar(&info.Date, "date", "", "date")
	fl.StringVar(&info.Shift, "shift", "", "shift")
	fl.StringVar(&info.Term, "term", "", "term")
	fl.StringVar(&info.Major, "major", "", "major")
	fl.StringVar(&info.Year, "year", "", "year level")
	fl.StringVar(&info.Team, "team", "", "team")
	fl.IntVar(&minutes, "minutes", 0, "validity in minutes (0 = no expiry)")
	fl.BoolVar(&shorten, "shorten", false, "shorten the link")
	_ = cmd.MarkFlagRequired("teacher")
	return cmd
}

func newPublishCmd(open appFactory) *cobra.Command {
	var off, list bool
	cmd := &cobra.Command{
		Use:   "publish [teacher]",
		Short: "Enable or disable a teacher's public results link",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app) error {
				w := cmd.OutOrStdout()
				if list {
					all, err := a.links.ListPublic(cmd.Context())
					if err != nil {
						return err
					}
					for _, st := range all {
						printLinkStatus(w, st)
					}
					return nil
				}
				st, err := a.links.SetPublic(cmd.Context(), args[0], !off)
				if err != nil {
					return err
				}
				printLinkStatus(w, *st)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "disable instead of enable")
	cmd.Flags().BoolVar(&list, "list", false, "list stored flags")
	return cmd
}

func printLinkStatus(w io.Writer, st services.PublicLinkStatus) {
	state := "off"
	if st.Enabled {
		state = "on"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", st.Teacher, state, st.URL)
}

func newCacheCmd(open appFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Manage the local submission cache"}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the local cache (the spreadsheet is not touched)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(open, func(a *app) error {
				if err := a.results.ClearCache(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "local cache cleared")
				return nil
			})
		},
	})
	return cmd
}
