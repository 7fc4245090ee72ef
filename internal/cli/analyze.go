package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/models"
	"alfredoptarigan/ats-scanner/internal/services"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	localClientID   = "local"
	pollInterval    = 100 * time.Millisecond
	progressBarSize = 30
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume>",
	Short: "Analyze a resume (PDF, JPEG, PNG or WEBP) in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		autoSave, _ := cmd.Flags().GetBool("save")
		skipLoad, _ := cmd.Flags().GetBool("no-load")
		return analyze(cmd.Context(), args[0], autoSave, skipLoad)
	},
}

func init() {
	analyzeCmd.Flags().BoolP("save", "s", false, "save the analysis without asking")
	analyzeCmd.Flags().Bool("no-load", false, "do not offer to load the previously saved analysis")
}

func analyze(ctx context.Context, path string, autoSave, skipLoad bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger()
	defer func() { _ = log.Sync() }()

	c, err := bootstrap(ctx, log)
	if err != nil {
		return err
	}

	wf := c.newWorkflow(uuid.NewString(), localClientID, nil)
	defer wf.Close()

	out := os.Stdout

	if !skipLoad && wf.Snapshot(ctx).HasSaved {
		load, err := confirm("A previous analysis is saved. Load it instead?")
		if err != nil {
			return err
		}
		if load {
			snap, err := wf.LoadSaved(ctx)
			if err == nil {
				printDashboard(out, snap.Record)
				return nil
			}
			log.Debug("loading saved analysis failed", zap.Error(err))
			fmt.Fprintln(out, snap.Notice)
		}
	}

	src, err := services.NewLocalFileSource(path, c.validator.MaxSize())
	if err != nil {
		return err
	}

	if _, err := wf.Submit(src); err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			return errors.New(validationErr.Message)
		}
		return err
	}

	snap, err := followProgress(ctx, out, wf)
	if err != nil {
		return err
	}
	if snap.Status == models.StatusError {
		return errors.New(snap.Error)
	}

	printDashboard(out, snap.Record)

	save := autoSave
	if !save {
		if save, err = confirm("Save this analysis?"); err != nil {
			return err
		}
	}
	if save {
		snap, err := wf.Save(ctx)
		fmt.Fprintln(out, snap.Notice)
		if err != nil {
			return err
		}
	}
	return nil
}

// followProgress renders progress events until the analysis settles.
func followProgress(ctx context.Context, out io.Writer, wf *services.Workflow) (models.SessionSnapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var seq int64
	milestone := ""
	for {
		select {
		case <-ctx.Done():
			return models.SessionSnapshot{}, ctx.Err()
		case <-ticker.C:
		}

		for _, e := range wf.Events().Since(seq) {
			seq = e.Seq
			if e.Type == services.EventTypeMilestone {
				milestone = e.Message
			}
		}

		snap := wf.Snapshot(ctx)
		switch snap.Status {
		case models.StatusAnalyzing:
			fmt.Fprintf(out, "\r%s %3.0f%% %-50s", progressBar(snap.Progress), snap.Progress, milestone)
		case models.StatusSuccess:
			fmt.Fprintf(out, "\r%s 100%% %-50s\n", progressBar(100), "Done")
			return snap, nil
		case models.StatusError:
			fmt.Fprintln(out)
			return snap, nil
		}
	}
}

func progressBar(progress float64) string {
	filled := int(progress / 100 * progressBarSize)
	if filled > progressBarSize {
		filled = progressBarSize
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", progressBarSize-filled) + "]"
}

func printDashboard(out io.Writer, record *models.AnalysisRecord) {
	if record == nil {
		return
	}
	view := services.NewAggregator().Aggregate(record)

	fmt.Fprintf(out, "\n%s, %s\n", record.CandidateName, record.BestRole)
	fmt.Fprintf(out, "ATS score: %d/100 (%s), room to improve: +%d\n", record.ATSScore, view.ScoreBand, view.ImprovementPotential)
	if record.KeywordMatchScore != nil {
		fmt.Fprintf(out, "Keyword match: %.2f%%\n", *record.KeywordMatchScore)
	}
	if record.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", record.Summary)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(view.ChartSeries) > 0 {
		fmt.Fprintln(w, "\nSKILL CATEGORY\tCOUNT")
		for _, b := range view.ChartSeries {
			fmt.Fprintf(w, "%s\t%d\n", b.Category, b.Count)
		}
	}
	if len(view.SectionScores) > 0 {
		fmt.Fprintln(w, "\nSECTION\tSCORE")
		for _, s := range view.SectionScores {
			fmt.Fprintf(w, "%s\t%.1f\n", s.Section, s.Score)
		}
	}
	_ = w.Flush()

	printList(out, "Strengths", record.Strengths)
	printList(out, "Weaknesses", record.Weaknesses)
	if len(view.Suggestions) > 0 {
		fmt.Fprintln(out, "\nSuggestions:")
		for _, s := range view.Suggestions {
			fmt.Fprintf(out, "  %d. %s\n", s.Rank, s.Text)
		}
	}
	if len(record.MissingKeywords) > 0 {
		fmt.Fprintf(out, "\nMissing keywords: %s\n", strings.Join(record.MissingKeywords, ", "))
	}
	if record.ReportFile != "" {
		fmt.Fprintf(out, "\nReport: %s\n", record.ReportFile)
	}
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}

func confirm(label string) (bool, error) {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}

	_, selected, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, errAborted
		}
		return false, err
	}
	return selected == PromptYes, nil
}
