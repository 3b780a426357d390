package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/hochfrequenz/cherry-orch/internal/campaign"
	"github.com/hochfrequenz/cherry-orch/internal/config"
	"github.com/hochfrequenz/cherry-orch/internal/controller"
	"github.com/hochfrequenz/cherry-orch/internal/domain"
	"github.com/hochfrequenz/cherry-orch/internal/git"
	"github.com/hochfrequenz/cherry-orch/internal/history"
	"github.com/hochfrequenz/cherry-orch/internal/ledger"
	"github.com/hochfrequenz/cherry-orch/internal/notify"
	"github.com/hochfrequenz/cherry-orch/internal/observer"
	"github.com/hochfrequenz/cherry-orch/tui"
	"github.com/hochfrequenz/cherry-orch/web/api"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	runLedger       string
	runFormat       string
	runResume       bool
	runAuto         bool
	runRepo         string
	runCampaignFile string
	runPollInterval time.Duration
	runPollTimeout  time.Duration

	statusLedger string
	renderLedger string
	renderOut    string
	historyLimit int
	serveLedger  string
	servePort    int
	tuiLedger    string
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run [START] [END]",
		Short: "Cherry-pick every commit after START up to and including END",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&runLedger, "ledger", "", "ledger file path")
	runCmd.Flags().StringVar(&runFormat, "format", "", "ledger format: csv or markdown")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "continue from an existing ledger")
	runCmd.Flags().BoolVar(&runAuto, "auto", false, "unattended mode: pick everything, poll for conflict resolution")
	runCmd.Flags().StringVar(&runRepo, "repo", "", "git repository directory")
	runCmd.Flags().StringVar(&runCampaignFile, "campaign", "", "campaign definition file (YAML)")
	runCmd.Flags().DurationVar(&runPollInterval, "poll-interval", 0, "conflict polling interval in unattended mode")
	runCmd.Flags().DurationVar(&runPollTimeout, "poll-timeout", 0, "give up on a conflict after this long (0 = wait forever)")
	rootCmd.AddCommand(runCmd)

	// status command
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show campaign progress from a ledger file",
		RunE:  runStatus,
	}
	statusCmd.Flags().StringVar(&statusLedger, "ledger", "", "ledger file path")
	rootCmd.AddCommand(statusCmd)

	// render command
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Emit the Markdown projection of a ledger",
		RunE:  runRender,
	}
	renderCmd.Flags().StringVar(&renderLedger, "ledger", "", "ledger file path")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "write to file instead of stdout")
	rootCmd.AddCommand(renderCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past campaign runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule CAMPAIGN_FILE",
		Short: "Run unattended campaigns on their cron schedules",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedule,
	}
	rootCmd.AddCommand(scheduleCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve campaign status over HTTP with live websocket updates",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&serveLedger, "ledger", "", "ledger file path")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on")
	rootCmd.AddCommand(serveCmd)

	// tui command
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the campaign dashboard",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&tuiLedger, "ledger", "", "ledger file path")
	rootCmd.AddCommand(tuiCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// ledgerPath resolves the ledger file for a command: flag wins, then the
// configured directory and file name.
func ledgerPath(cfg *config.Config, flagValue string) string {
	if flagValue != "" {
		return config.ExpandPath(flagValue)
	}
	return cfg.LedgerPath()
}

func linksFromConfig(cfg *config.Config) ledger.Links {
	return ledger.Links{CommitURL: cfg.Links.CommitURL, PullURL: cfg.Links.PullURL}
}

func resolveFormat(cfg *config.Config, flagValue, path string) ledger.Format {
	switch strings.ToLower(flagValue) {
	case "csv":
		return ledger.FormatCSV
	case "markdown", "md":
		return ledger.FormatMarkdown
	}
	switch strings.ToLower(cfg.Ledger.Format) {
	case "csv":
		return ledger.FormatCSV
	case "markdown", "md":
		return ledger.FormatMarkdown
	}
	return ledger.DetectFormat(path)
}

// promptRef asks for a missing range endpoint on the terminal
func promptRef(in *bufio.Scanner, label string) (string, error) {
	fmt.Printf("%s: ", label)
	if !in.Scan() {
		return "", fmt.Errorf("no input for %s", label)
	}
	ref := strings.TrimSpace(in.Text())
	if ref == "" {
		return "", fmt.Errorf("%s must not be empty", label)
	}
	return ref, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runCampaignFile != "" {
		f, err := campaign.Load(runCampaignFile)
		if err != nil {
			return err
		}
		for _, camp := range f.Campaigns {
			fmt.Printf("Campaign %s: %s..%s\n", camp.Name, camp.Start, camp.End)
			if err := executeCampaign(cfg, camp, runResume); err != nil {
				return err
			}
		}
		return nil
	}

	stdin := bufio.NewScanner(os.Stdin)
	var start, end string
	if len(args) > 0 {
		start = args[0]
	} else if start, err = promptRef(stdin, "Start ref (exclusive)"); err != nil {
		return err
	}
	if len(args) > 1 {
		end = args[1]
	} else if end, err = promptRef(stdin, "End ref (inclusive)"); err != nil {
		return err
	}

	camp := campaign.Campaign{
		Name:       "adhoc",
		Repo:       runRepo,
		Start:      start,
		End:        end,
		Ledger:     ledgerPath(cfg, runLedger),
		Format:     runFormat,
		Unattended: runAuto,
		PollEvery:  runPollInterval,
		Timeout:    runPollTimeout,
	}
	return executeCampaign(cfg, camp, runResume)
}

// executeCampaign resolves the range, prepares the ledger, and drives the
// cherry-pick loop for one campaign
func executeCampaign(cfg *config.Config, camp campaign.Campaign, resume bool) error {
	repoDir := camp.Repo
	if repoDir == "" {
		repoDir = cfg.Git.RepoDir
	}
	repo := git.Open(config.ExpandPath(repoDir))

	hashes, err := repo.RevList(camp.Start, camp.End)
	if err != nil {
		return err
	}

	path := config.ExpandPath(camp.Ledger)
	if path == "" {
		path = cfg.LedgerPath()
	}
	format := resolveFormat(cfg, camp.Format, path)
	links := linksFromConfig(cfg)

	var led *ledger.Ledger
	if resume {
		led, err = ledger.Load(path, format, links)
		if err != nil {
			return err
		}
		if led == nil {
			fmt.Fprintf(os.Stderr, "No ledger at %s; starting fresh\n", path)
		}
	}
	if led == nil {
		led = ledger.New(path, format, links)
		records := make([]domain.CommitRecord, 0, len(hashes))
		for _, hash := range hashes {
			subject, err := repo.Subject(hash)
			if err != nil {
				return err
			}
			records = append(records, domain.CommitRecord{Hash: hash, Message: subject})
		}
		if err := led.Seed(records); err != nil {
			return err
		}
	}

	// A resumed run restarts at the commit after the last recorded one.
	pending := hashes
	if rp := led.ResumePoint(); rp != "" {
		for i, hash := range hashes {
			if hash == rp {
				pending = hashes[i+1:]
				break
			}
		}
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to do: every commit in range is already recorded.")
		return nil
	}

	opts := controller.Options{
		Unattended:   camp.Unattended,
		PollInterval: camp.PollEvery,
		PollTimeout:  camp.Timeout,
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = cfg.Polling.Interval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = cfg.Polling.Timeout
	}

	run := &domain.CampaignRun{
		ID:         uuid.NewString(),
		StartRef:   camp.Start,
		EndRef:     camp.End,
		LedgerPath: path,
		Format:     string(format),
		Unattended: camp.Unattended,
		Status:     domain.RunRunning,
		StartedAt:  time.Now(),
	}
	store, storeErr := history.New(cfg.History.DatabasePath)
	if storeErr != nil {
		// History is best-effort; the ledger alone is authoritative.
		fmt.Fprintf(os.Stderr, "history disabled: %v\n", storeErr)
	} else {
		defer store.Close()
		if err := store.SaveRun(run); err != nil {
			fmt.Fprintf(os.Stderr, "recording run: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl := controller.New(repo, led, os.Stdin, os.Stdout, opts)
	res, runErr := ctrl.Run(ctx, pending)

	finished := time.Now()
	run.FinishedAt = &finished
	run.Picked, run.Skipped, run.Conflicts = res.Picked, res.Skipped, res.Conflicts
	switch {
	case runErr != nil:
		run.Status = domain.RunFailed
	case res.Aborted:
		run.Status = domain.RunAborted
	default:
		run.Status = domain.RunCompleted
	}
	if store != nil {
		if err := store.SaveRun(run); err != nil {
			fmt.Fprintf(os.Stderr, "recording run: %v\n", err)
		}
	}

	// Nobody is watching an unattended run; push the outcome.
	if camp.Unattended {
		notifier := notify.NewMultiNotifier(
			notify.NewDesktopNotifier(cfg.Notifications.Desktop),
			notify.NewSlackNotifier(cfg.Notifications.SlackWebhook),
		)
		if err := notifier.Send(notify.RunCompleted(run, camp.Name)); err != nil {
			fmt.Fprintf(os.Stderr, "notify: %v\n", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Printf("Done: %d picked, %d skipped, %d conflicts resolved. Ledger: %s\n",
		res.Picked, res.Skipped, res.Conflicts, path)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := ledgerPath(cfg, statusLedger)
	led, err := ledger.Load(path, resolveFormat(cfg, "", path), linksFromConfig(cfg))
	if err != nil {
		return err
	}
	if led == nil {
		return fmt.Errorf("no ledger at %s", path)
	}

	counts := led.Counts()
	fmt.Printf("%s: %d commits — %d success, %d skipped, %d conflict-resolved, %d pending\n\n",
		path, led.Len(),
		counts[domain.StatusSuccess], counts[domain.StatusSkipped],
		counts[domain.StatusConflictResolved], counts[domain.StatusPending])

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMMIT\tSTATUS\tTIMESTAMP\tMESSAGE")
	for _, rec := range led.Records() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.ShortHash(), rec.Status, rec.Timestamp, rec.Message)
	}
	return w.Flush()
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := ledgerPath(cfg, renderLedger)
	led, err := ledger.Load(path, resolveFormat(cfg, "", path), linksFromConfig(cfg))
	if err != nil {
		return err
	}
	if led == nil {
		return fmt.Errorf("no ledger at %s", path)
	}

	out := led.Render()
	if renderOut == "" {
		fmt.Print(out)
		return nil
	}
	return os.WriteFile(config.ExpandPath(renderOut), []byte(out), 0644)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.New(cfg.History.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRANGE\tSTATUS\tPICKED\tSKIPPED\tCONFLICTS\tLEDGER")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s..%s\t%s\t%d\t%d\t%d\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04"),
			run.StartRef, run.EndRef, run.Status,
			run.Picked, run.Skipped, run.Conflicts, run.LedgerPath)
	}
	return w.Flush()
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := campaign.Load(args[0])
	if err != nil {
		return err
	}
	scheduled := f.Scheduled()
	if len(scheduled) == 0 {
		return fmt.Errorf("%s defines no scheduled campaigns", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		// Fire whichever campaign is due next.
		next := time.Time{}
		var due campaign.Campaign
		now := time.Now()
		for _, camp := range scheduled {
			at, err := camp.NextRun(now)
			if err != nil {
				return err
			}
			if next.IsZero() || at.Before(next) {
				next = at
				due = camp
			}
		}

		fmt.Printf("Next: %s at %s\n", due.Name, next.Format(time.RFC3339))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Until(next)):
		}

		fmt.Printf("Running campaign %s\n", due.Name)
		if err := executeCampaign(cfg, due, true); err != nil {
			// Scheduled runs keep going; the failure is in the run history.
			fmt.Fprintf(os.Stderr, "campaign %s: %v\n", due.Name, err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := ledgerPath(cfg, serveLedger)
	port := servePort
	if port == 0 {
		port = cfg.Web.Port
	}
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)

	server := api.NewServer(path, resolveFormat(cfg, "", path), linksFromConfig(cfg), addr)

	watcher, err := observer.NewLedgerWatcher(path, func(string) {
		server.NotifyChange()
	})
	if err != nil {
		return err
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	watcher.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	fmt.Printf("Serving %s on http://%s\n", path, addr)
	return g.Wait()
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := ledgerPath(cfg, tuiLedger)

	model := tui.NewModel(path, resolveFormat(cfg, "", path), linksFromConfig(cfg))
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
