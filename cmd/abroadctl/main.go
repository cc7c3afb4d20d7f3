// Package main provides the CLI entry point for the study-abroad
// platform client.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/abroad/client/internal/api"
	"github.com/example/abroad/client/internal/budget"
	"github.com/example/abroad/client/internal/catalog"
	"github.com/example/abroad/client/internal/config"
	"github.com/example/abroad/client/internal/credstore"
	"github.com/example/abroad/client/internal/feedback"
	"github.com/example/abroad/client/internal/metrics"
	"github.com/example/abroad/client/internal/notify"
	"github.com/example/abroad/client/internal/session"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// CLI flags
var (
	configPath   string
	serverURL    string
	pollInterval time.Duration
	metricsAddr  string
	verbose      bool
	showVersion  bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&configPath, "c", "", "Path to the YAML configuration file (shorthand)")

	flag.StringVar(&serverURL, "server", "", "Override the API base URL")
	flag.DurationVar(&pollInterval, "poll-interval", 0, "Override the notification poll interval (e.g. 30s)")
	flag.StringVar(&metricsAddr, "metrics", "", "Enable the Prometheus metrics endpoint in watch mode (e.g. :9190)")

	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&verbose, "v", false, "Enable verbose output (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `abroadctl - Study Abroad Platform Client

USAGE:
    abroadctl [options] <command> [arguments]

COMMANDS:
    signup <name> <email> <password> <country> [degree]
                          Create an account and log in
    login <email> <password>
                          Log in and persist the session token
    logout                End the session and clear the stored token
    whoami                Show the current session

    profile get           Show the applicant profile
    profile update [options]
                          Update profile fields (run with -h for options)

    docs upload <kind> <file>
                          Upload a document (e.g. transcript, ielts)
    docs download <kind> <file>
                          Download a document to a local file
    docs delete <kind>    Delete a document

    notifications list    List notifications
    notifications read <id>
                          Mark one notification as read
    notifications read-all
                          Mark all notifications as read
    notifications delete <id>
                          Delete a notification
    watch                 Poll for notifications until interrupted

    universities [options]
                          Search universities (run with -h for options)
    scholarships [options]
                          Search scholarships
    apply <university-id> Submit an application
    applications          List submitted applications
    withdraw <id>         Withdraw an application
    budget [options]      Compute a funding plan (run with -h for options)

OPTIONS:
    -config, -c <path>    Path to the YAML configuration file
    -server <url>         Override the API base URL
    -poll-interval <dur>  Override the notification poll interval
    -metrics <addr>       Enable Prometheus metrics in watch mode
    -verbose, -v          Enable verbose output
    -version              Show version information

EXAMPLES:
    abroadctl signup "Ada Park" ada@example.com s3cretpass Germany master
    abroadctl login ada@example.com s3cretpass
    abroadctl universities -country Germany -degree master -max-tuition 15000
    abroadctl apply 1f6a...
    abroadctl watch -metrics :9190
`)
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("abroadctl version %s\n", version)
		fmt.Printf("  Build time: %s\n", buildTime)
		fmt.Printf("  Git commit: %s\n", gitCommit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app wires the client components together for one invocation.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	recorder *metrics.Recorder
	session  *session.Store
	notes    *notify.Store
	catalog  *catalog.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}
	if pollInterval > 0 {
		cfg.Poll.Interval = pollInterval
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = metricsAddr
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if cfg.Verbose {
		log, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	credPath := cfg.Credentials.Path
	if credPath == "" {
		credPath, err = credstore.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	creds := credstore.New(credPath)

	recorder := metrics.NewRecorder()
	tokens := &api.TokenHolder{}
	client, err := api.NewClient(api.Options{
		BaseURL:   cfg.Server.BaseURL,
		Timeout:   cfg.Server.Timeout,
		Tokens:    tokens,
		RateLimit: cfg.Server.RateLimit,
		Observer:  recorder,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	console := feedback.NewConsole(os.Stderr)
	return &app{
		cfg:      cfg,
		log:      log,
		recorder: recorder,
		session:  session.NewStore(client, tokens, creds, console, log),
		notes:    notify.NewStore(client, console, log),
		catalog:  catalog.NewClient(client),
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return a.cmdSignup(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "profile":
		return a.cmdProfile(ctx, args)
	case "docs":
		return a.cmdDocs(ctx, args)
	case "notifications":
		return a.cmdNotifications(ctx, args)
	case "watch":
		return a.cmdWatch(ctx)
	case "universities":
		return a.cmdUniversities(ctx, args)
	case "scholarships":
		return a.cmdScholarships(ctx, args)
	case "apply":
		return a.cmdApply(ctx, args)
	case "applications":
		return a.cmdApplications(ctx)
	case "withdraw":
		return a.cmdWithdraw(ctx, args)
	case "budget":
		return cmdBudget(args)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireLogin resolves the persisted session and fails when no valid
// session exists.
func (a *app) requireLogin(ctx context.Context) error {
	if a.session.Resolve(ctx) != session.StateLoggedIn {
		return fmt.Errorf("not logged in; run 'abroadctl login <email> <password>' first")
	}
	return nil
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: abroadctl signup <name> <email> <password> <country> [degree]")
	}
	in := session.SignupInput{Name: args[0], Email: args[1], Password: args[2], Country: args[3]}
	if len(args) > 4 {
		in.Degree = args[4]
	}
	if res := a.session.Signup(ctx, in); !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: abroadctl login <email> <password>")
	}
	if res := a.session.Login(ctx, args[0], args[1]); !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if a.session.Resolve(ctx) != session.StateLoggedIn {
		fmt.Println("No active session.")
		return nil
	}
	a.session.Logout(ctx)
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if a.session.Resolve(ctx) != session.StateLoggedIn {
		fmt.Println("Not logged in.")
		return nil
	}
	u := a.session.User()
	fmt.Printf("%s <%s> (%s)\n", u.Name, u.Email, u.Role)
	return nil
}

func (a *app) cmdProfile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: abroadctl profile <get|update>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "get":
		p, err := a.session.GetProfile(ctx)
		if err != nil {
			return err
		}
		printProfile(p)
		return nil
	case "update":
		fs := flag.NewFlagSet("profile update", flag.ExitOnError)
		var p session.Profile
		fs.StringVar(&p.Phone, "phone", "", "Phone number")
		fs.StringVar(&p.Country, "country", "", "Target country")
		fs.StringVar(&p.Degree, "degree", "", "Target degree (bachelor, master, phd)")
		fs.StringVar(&p.FieldOfStudy, "field", "", "Field of study")
		fs.Float64Var(&p.GPA, "gpa", 0, "Grade point average")
		fs.StringVar(&p.TargetIntake, "intake", "", "Target intake (e.g. 2027-fall)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		// Unset flags keep their current server-side values.
		current, err := a.session.GetProfile(ctx)
		if err != nil {
			return err
		}
		merged := mergeProfile(current, p)
		updated, err := a.session.UpdateProfile(ctx, merged)
		if err != nil {
			return err
		}
		printProfile(updated)
		return nil
	default:
		return fmt.Errorf("unknown profile command %q", args[0])
	}
}

func mergeProfile(base, overrides session.Profile) session.Profile {
	if overrides.Phone != "" {
		base.Phone = overrides.Phone
	}
	if overrides.Country != "" {
		base.Country = overrides.Country
	}
	if overrides.Degree != "" {
		base.Degree = overrides.Degree
	}
	if overrides.FieldOfStudy != "" {
		base.FieldOfStudy = overrides.FieldOfStudy
	}
	if overrides.GPA != 0 {
		base.GPA = overrides.GPA
	}
	if overrides.TargetIntake != "" {
		base.TargetIntake = overrides.TargetIntake
	}
	return base
}

func printProfile(p session.Profile) {
	fmt.Println("Profile:")
	fmt.Printf("  Phone:         %s\n", orDash(p.Phone))
	fmt.Printf("  Country:       %s\n", orDash(p.Country))
	fmt.Printf("  Degree:        %s\n", orDash(p.Degree))
	fmt.Printf("  Field:         %s\n", orDash(p.FieldOfStudy))
	if p.GPA > 0 {
		fmt.Printf("  GPA:           %.2f\n", p.GPA)
	} else {
		fmt.Printf("  GPA:           -\n")
	}
	fmt.Printf("  Target intake: %s\n", orDash(p.TargetIntake))
	if len(p.Documents) > 0 {
		fmt.Println("  Documents:")
		for _, d := range p.Documents {
			fmt.Printf("    %-12s %s (uploaded %s)\n", d.Kind, d.FileName, d.UploadedAt.Format("2006-01-02"))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (a *app) cmdDocs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: abroadctl docs <upload|download|delete> ...")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "upload":
		if len(args) != 3 {
			return fmt.Errorf("usage: abroadctl docs upload <kind> <file>")
		}
		content, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[2], err)
		}
		return a.session.UploadDocuments(ctx, []session.DocumentFile{{
			Kind:    args[1],
			Name:    args[2],
			Content: content,
		}})
	case "download":
		if len(args) != 3 {
			return fmt.Errorf("usage: abroadctl docs download <kind> <file>")
		}
		content, err := a.session.DownloadDocument(ctx, args[1])
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[2], content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", args[2], err)
		}
		fmt.Printf("Saved %s (%d bytes)\n", args[2], len(content))
		return nil
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: abroadctl docs delete <kind>")
		}
		return a.session.DeleteDocument(ctx, args[1])
	default:
		return fmt.Errorf("unknown docs command %q", args[0])
	}
}

func (a *app) cmdNotifications(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.notes.Fetch(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		items := a.notes.Items()
		if len(items) == 0 {
			fmt.Println("No notifications.")
			return nil
		}
		fmt.Printf("%d notifications, %d unread:\n", len(items), a.notes.UnreadCount())
		for _, n := range items {
			fmt.Printf("  %s %-12s %s  %s (%s)\n",
				n.Type.Symbol(), n.Type.Label(), n.CreatedAt.Format("2006-01-02 15:04"), n.Title, n.ID)
		}
		return nil
	case "read":
		if len(args) != 2 {
			return fmt.Errorf("usage: abroadctl notifications read <id>")
		}
		a.notes.MarkRead(ctx, args[1])
		fmt.Printf("%d unread remaining.\n", a.notes.UnreadCount())
		return nil
	case "read-all":
		a.notes.MarkAllRead(ctx)
		fmt.Println("All notifications marked read.")
		return nil
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: abroadctl notifications delete <id>")
		}
		a.notes.Delete(ctx, args[1])
		return nil
	default:
		return fmt.Errorf("unknown notifications command %q", args[0])
	}
}

// cmdWatch polls for notifications until the context is cancelled by an
// interrupt or by the session turning invalid server-side.
func (a *app) cmdWatch(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var metricsSrv *http.Server
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.recorder.Handler())
		metricsSrv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "metrics endpoint error: %v\n", err)
			}
		}()
		fmt.Printf("Metrics available at http://%s/metrics\n", a.cfg.Metrics.Addr)
	}

	poller := notify.NewPoller(a.notes, a.cfg.Poll.Interval, a.log)
	poller.SetObserver(&watchObserver{recorder: a.recorder, notes: a.notes})
	poller.OnAuthFailure = func() {
		fmt.Fprintln(os.Stderr, "Session expired; stopping.")
		cancel()
	}

	fmt.Printf("Watching notifications every %v (Ctrl-C to stop)...\n", a.cfg.Poll.Interval)
	poller.Start(watchCtx)
	<-poller.Done()

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// watchObserver feeds poll outcomes to the metrics recorder and prints
// newly arrived unread notifications.
type watchObserver struct {
	recorder *metrics.Recorder
	notes    *notify.Store

	lastSeen map[string]bool
}

func (w *watchObserver) PollCompleted(unread int) {
	w.recorder.PollCompleted(unread)

	seen := make(map[string]bool)
	for _, n := range w.notes.Items() {
		seen[n.ID] = true
		if !n.Read && w.lastSeen != nil && !w.lastSeen[n.ID] {
			fmt.Printf("%s [%s] %s: %s\n", n.Type.Symbol(), n.Type.Label(), n.Title, n.Message)
		}
	}
	w.lastSeen = seen
}

func (w *watchObserver) PollFailed() {
	w.recorder.PollFailed()
}

func (a *app) cmdUniversities(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("universities", flag.ExitOnError)
	var (
		country    = fs.String("country", "", "Filter by country")
		degree     = fs.String("degree", "", "Filter by degree (bachelor, master, phd)")
		field      = fs.String("field", "", "Filter by field of study")
		maxTuition = fs.String("max-tuition", "", "Maximum tuition per year")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := catalog.SearchFilter{Country: *country, Degree: *degree, FieldOfStudy: *field}
	if *maxTuition != "" {
		v, err := decimal.NewFromString(*maxTuition)
		if err != nil {
			return fmt.Errorf("invalid -max-tuition value %q", *maxTuition)
		}
		filter.MaxTuition = v
	}

	unis, err := a.catalog.SearchUniversities(ctx, filter)
	if err != nil {
		return err
	}
	if len(unis) == 0 {
		fmt.Println("No universities match the filter.")
		return nil
	}
	now := time.Now()
	fmt.Printf("%d universities:\n", len(unis))
	for _, u := range unis {
		fmt.Printf("  %-35s %-12s %-8s %10s/yr  deadline %s (%s)\n    id: %s\n",
			u.Name, u.Country, u.Degree, u.TuitionPerYr.StringFixed(0),
			u.Deadline.Format("2006-01-02"), catalog.BucketDeadline(u.Deadline, now), u.ID)
	}
	return nil
}

func (a *app) cmdScholarships(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scholarships", flag.ExitOnError)
	country := fs.String("country", "", "Filter by country")
	if err := fs.Parse(args); err != nil {
		return err
	}

	schs, err := a.catalog.SearchScholarships(ctx, catalog.SearchFilter{Country: *country})
	if err != nil {
		return err
	}
	if len(schs) == 0 {
		fmt.Println("No scholarships match the filter.")
		return nil
	}
	now := time.Now()
	fmt.Printf("%d scholarships:\n", len(schs))
	for _, sch := range schs {
		fmt.Printf("  %-30s %-12s %10s  deadline %s (%s)\n",
			sch.Name, sch.Country, sch.Amount.StringFixed(0),
			sch.Deadline.Format("2006-01-02"), catalog.BucketDeadline(sch.Deadline, now))
	}
	return nil
}

func (a *app) cmdApply(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: abroadctl apply <university-id>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	app, err := a.catalog.SubmitApplication(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Application %s submitted to %s.\n", app.ID, app.University)
	return nil
}

func (a *app) cmdApplications(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	apps, err := a.catalog.ListApplications(ctx)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		fmt.Println("No applications yet.")
		return nil
	}
	fmt.Printf("%d applications:\n", len(apps))
	for _, app := range apps {
		fmt.Printf("  %-35s %-12s submitted %s\n    id: %s\n",
			app.University, app.Status, app.SubmittedAt.Format("2006-01-02"), app.ID)
	}
	return nil
}

func (a *app) cmdWithdraw(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: abroadctl withdraw <application-id>")
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.catalog.WithdrawApplication(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Application withdrawn.")
	return nil
}

// cmdBudget is purely local; no session needed.
func cmdBudget(args []string) error {
	fs := flag.NewFlagSet("budget", flag.ExitOnError)
	var (
		tuition      = fs.String("tuition", "0", "Tuition per year")
		living       = fs.String("living", "0", "Living costs per year")
		insurance    = fs.String("insurance", "0", "Insurance per year")
		travel       = fs.String("travel", "0", "Travel costs")
		fees         = fs.String("fees", "0", "Application and visa fees")
		savings      = fs.String("savings", "0", "Current savings")
		scholarships = fs.String("scholarships", "", "Comma-separated name:amount pairs")
		deadline     = fs.String("deadline", "", "Funding deadline (YYYY-MM-DD)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	plan := budget.Plan{}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"tuition", *tuition, &plan.Tuition},
		{"living", *living, &plan.Living},
		{"insurance", *insurance, &plan.Insurance},
		{"travel", *travel, &plan.Travel},
		{"fees", *fees, &plan.Fees},
		{"savings", *savings, &plan.Savings},
	} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("invalid -%s value %q", f.name, f.raw)
		}
		*f.dst = v
	}
	if *scholarships != "" {
		for _, pair := range strings.Split(*scholarships, ",") {
			name, raw, ok := strings.Cut(pair, ":")
			if !ok {
				return fmt.Errorf("invalid scholarship %q, expected name:amount", pair)
			}
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("invalid scholarship amount %q", raw)
			}
			plan.Scholarships = append(plan.Scholarships, budget.Award{Name: name, Amount: amount})
		}
	}

	fmt.Println("Budget plan:")
	fmt.Printf("  Total cost:    %s\n", plan.TotalCost().StringFixed(2))
	fmt.Printf("  Total funding: %s\n", plan.TotalFunding().StringFixed(2))
	fmt.Printf("  Gap:           %s\n", plan.Gap().StringFixed(2))
	fmt.Printf("  Coverage:      %s%%\n", plan.CoveragePercent().StringFixed(1))
	if *deadline != "" {
		d, err := time.Parse("2006-01-02", *deadline)
		if err != nil {
			return fmt.Errorf("invalid -deadline value %q, expected YYYY-MM-DD", *deadline)
		}
		fmt.Printf("  Monthly target until %s: %s\n",
			d.Format("2006-01-02"), plan.MonthlySavingTarget(d, time.Now()).StringFixed(2))
	}
	return nil
}
