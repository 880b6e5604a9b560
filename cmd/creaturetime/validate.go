package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/reporting"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/rules"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

// selection is the rule-choice flags shared by check, repair and watch.
type selection struct {
	rule    int
	disable []int
}

func (s *selection) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&s.rule, "rule", -1, "Run only this rule id (clears every other finding)")
	cmd.Flags().IntSliceVar(&s.disable, "disable", nil, "Rule ids to disable for this run")
}

// run validates the session's document with the selected rules.
func (s *selection) run(sess *validation.Session) error {
	reg := sess.Registry()
	for _, id := range s.disable {
		if err := reg.SetEnabled(id, false); err != nil {
			return err
		}
	}
	if s.rule >= 0 {
		if _, ok := reg.Rule(s.rule); !ok {
			return fmt.Errorf("%w: %d", validation.ErrRuleNotFound, s.rule)
		}
		return reg.RunOne(sess.Scene(), s.rule)
	}
	return sess.Validate()
}

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := validation.NewRegistry(a.log, rules.Catalog)
			reg.Initialize()
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRULE\tENABLED")
			for _, e := range reg.Entries() {
				fmt.Fprintf(tw, "%d\t%s\t%t\n", e.ID, e.Name, e.Enabled)
			}
			return tw.Flush()
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		scenePath string
		outDir    string
		report    bool
		strict    bool
		sel       selection
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a scene document and list findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, doc, err := a.openSession(scenePath, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sel.run(sess); err != nil {
				return err
			}
			items := sess.Registry().Findings()
			printFindings(out(cmd), items)

			if report || outDir != "" {
				dir := outDir
				if dir == "" {
					dir = a.cfg.Reporting.OutDir
				}
				rep := reporting.NewReport(sess.ID, doc.Name, sess.Registry())
				jsonPath, err := reporting.WriteJSON(sess.ID, dir, rep)
				if err != nil {
					return err
				}
				htmlPath, err := reporting.WriteHTML(sess.ID, dir, rep)
				if err != nil {
					return err
				}
				a.log.Info("report written", "json", jsonPath, "html", htmlPath)
				fmt.Fprintf(out(cmd), "Report\n  JSON: %s\n  HTML: %s\n", jsonPath, htmlPath)
			}

			if strict && hasErrorSeverity(items) {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenePath, "scene", "", "Scene document (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&report, "report", false, "Write JSON and HTML reports to reporting.out_dir")
	cmd.Flags().StringVar(&outDir, "out", "", "Write JSON and HTML reports to this directory")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any error-severity finding remains")
	sel.bind(cmd)
	return cmd
}

func newRepairCmd(a *app) *cobra.Command {
	var (
		scenePath string
		outDir    string
		index     int
		all       bool
		dryRun    bool
		sel       selection
	)
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Validate a scene document and apply repairs",
		Long: `repair validates the document, then applies the repair of the finding at
--index, or every available repair with --all. A single repair that fails
is an error; with --all failures are counted and the rest still run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (index >= 0) {
				return errors.New("exactly one of --index or --all is required")
			}

			var journal validation.Journal
			if !dryRun {
				db, err := a.openJournal()
				if err != nil {
					return err
				}
				if db != nil {
					defer db.Close()
					journal = db
				}
			}
			sess, doc, err := a.openSession(scenePath, journal)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sel.run(sess); err != nil {
				return err
			}
			before := reporting.NewReport(sess.ID, doc.Name, sess.Registry())

			// Host faults during --all still leave the successful repairs in
			// the document, so it is saved before faults are reported.
			d := sess.Dispatcher()
			var (
				batch  *validation.BatchResult
				faults error
			)
			if all {
				res, err := d.RepairAll(cmd.Context())
				batch, faults = &res, err
				fmt.Fprintf(out(cmd), "Repaired %d of %d (%d failed, %d without a repair)\n",
					res.Repaired, res.Attempted, res.Failed, res.Skipped)
			} else if err := d.RepairOne(cmd.Context(), index); err != nil {
				return err
			}
			printFindings(out(cmd), sess.Registry().Findings())

			if dryRun {
				fmt.Fprintln(out(cmd), "Dry run: document not saved")
				return faults
			}
			if err := scene.Save(scenePath, doc); err != nil {
				return err
			}

			if outDir != "" {
				if err := sel.run(sess); err != nil {
					return err
				}
				after := reporting.NewReport(sess.ID, doc.Name, sess.Registry())
				after.Repairs = batch
				path, err := reporting.WriteDiffJSON(outDir, reporting.Compare("before", "after", before, after))
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Diff: %s\n", path)
			}
			return faults
		},
	}
	cmd.Flags().StringVar(&scenePath, "scene", "", "Scene document (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&outDir, "out", "", "Write a before/after finding diff to this directory")
	cmd.Flags().IntVar(&index, "index", -1, "Position of the finding to repair")
	cmd.Flags().BoolVar(&all, "all", false, "Attempt every available repair")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Apply repairs in memory only")
	sel.bind(cmd)
	return cmd
}

func printFindings(w io.Writer, items []validation.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No findings")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSEVERITY\tRULE\tMESSAGE\tREPAIR")
	for _, it := range items {
		fix := "-"
		if it.Repair != nil {
			fix = it.Repair.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", it.Position, it.Severity, it.Rule, it.Message, fix)
	}
	_ = tw.Flush()
}

func hasErrorSeverity(items []validation.Item) bool {
	for _, it := range items {
		if it.Severity == rules.SeverityError {
			return true
		}
	}
	return false
}
