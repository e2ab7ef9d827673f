package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ms-gatepass/internal/auth"
	"ms-gatepass/internal/client"
	"ms-gatepass/internal/config"
	"ms-gatepass/internal/dashboard"
	"ms-gatepass/internal/intake"
	"ms-gatepass/internal/kafka"
	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"
	passes "ms-gatepass/internal/passes/service"
	"ms-gatepass/internal/table"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

const usage = `usage: pass-console [-api URL] [-token TOKEN] <command> [flags]

commands:
  list       show passes (filter, sort, paginate, choose columns)
  create     register a visitor pass
  delete     delete a pass after confirmation
  edit       not supported
  qr         save the QR badge of a pass as PNG
  dashboard  show the metrics dashboard, -watch to keep polling
  events     follow pass created/deleted events from Kafka
`

func main() {
	_ = godotenv.Load()
	cfg := config.LoadConsole()

	apiURL := flag.String("api", cfg.APIURL, "gate-pass service base URL")
	token := flag.String("token", cfg.Token, "bearer token for the API")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	log, _ := logger.NewLogger(logger.Options{Service: cfg.Log.Service, Terminal: os.Stderr, Level: cfg.Log.Level})

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	api := client.New(*apiURL)
	cfg.Token = *token
	if err := configureAuth(ctx, api, cfg, log); err != nil {
		log.Fatal("AUTH", err.Error())
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	case "list":
		err = runList(ctx, api, args)
	case "create":
		err = runCreate(ctx, api, args)
	case "delete":
		err = runDelete(ctx, api, args)
	case "edit":
		err = table.NewController(api, api).Edit(0)
	case "qr":
		err = runQR(ctx, api, args)
	case "dashboard":
		err = runDashboard(ctx, api, args, cfg.RefreshInterval, log)
	case "events":
		err = runEvents(ctx, cfg, log)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("CONSOLE", fmt.Sprintf("%s: %v", cmd, err))
		os.Exit(1)
	}
}

// configureAuth picks the API credentials: an explicit token, client credentials
// against the OIDC issuer, or a short-lived token signed with AUTH_JWT_SECRET.
func configureAuth(ctx context.Context, api *client.Client, cfg *config.ConsoleConfig, log *logger.Logger) error {
	switch {
	case cfg.Token != "":
		api.Token = cfg.Token
	case cfg.Auth.OIDCIssuer != "" && cfg.Auth.ClientID != "":
		tokenURL, err := auth.DiscoverTokenURL(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			return err
		}
		creds := &auth.ClientCredentials{
			TokenURL:     tokenURL,
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			HTTPClient:   api.HTTPClient,
		}
		api.Tokens = auth.NewTokenCache(creds.FetchToken)
		log.Debug("AUTH", fmt.Sprintf("using client credentials for %s", cfg.Auth.ClientID))
	case cfg.Auth.JWTSecret != "":
		api.Tokens = auth.NewTokenCache(func(context.Context) (*auth.CachedToken, error) {
			return mintHMACToken(cfg.Auth.JWTSecret)
		})
	}
	return nil
}

func mintHMACToken(secret string) (*auth.CachedToken, error) {
	now := time.Now()
	expires := now.Add(time.Hour)
	subject := os.Getenv("USER")
	if subject == "" {
		subject = "pass-console"
	}
	signed, err := auth.SignHMACToken(secret, subject, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &auth.CachedToken{Token: signed, ExpiresAt: expires}, nil
}

func runList(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	filter := fs.String("filter", "", "case-insensitive search on name, email and phone")
	sortBy := fs.String("sort", string(table.ColumnID), "column to sort by")
	dir := fs.String("dir", "desc", "sort direction, asc or desc")
	rows := fs.Int("rows", 5, "rows per page: 5, 10 or 15")
	page := fs.Int("page", 1, "page to show")
	columns := fs.String("columns", "", "comma separated visible columns")
	fs.Parse(args)

	ctl := table.NewController(api, api)
	if err := ctl.Load(ctx); err != nil {
		return err
	}
	if err := configureTable(ctl, *filter, *sortBy, *dir, *rows, *columns); err != nil {
		return err
	}
	ctl.SetPage(*page)
	return ctl.Render(os.Stdout)
}

func configureTable(ctl *table.Controller, filter, sortBy, dir string, rows int, columns string) error {
	direction, err := table.ParseDirection(dir)
	if err != nil {
		return err
	}
	if err := ctl.SetSort(table.Column(sortBy), direction); err != nil {
		return err
	}
	if err := ctl.SetRowsPerPage(rows); err != nil {
		return err
	}
	if columns != "" {
		if err := ctl.SetVisibleColumns(strings.Split(columns, ",")...); err != nil {
			return err
		}
	}
	ctl.SetFilter(filter)
	return nil
}

func runCreate(ctx context.Context, api *client.Client, args []string) error {
	form := intake.NewForm(api)

	fs := flag.NewFlagSet("create", flag.ExitOnError)
	fs.StringVar(&form.Fields.Name, "name", "", "visitor name (required)")
	fs.StringVar(&form.Fields.Email, "email", "", "visitor email")
	fs.StringVar(&form.Fields.Phone, "phone", "", "visitor phone (required)")
	fs.StringVar(&form.Fields.Address, "address", "", "visitor address (required)")
	fs.StringVar(&form.Fields.Reason, "reason", "", "reason for the visit")
	start := fs.String("start", form.Fields.Start.Format(passes.DateLayout), "first valid day, YYYY-MM-DD")
	end := fs.String("end", form.Fields.End.Format(passes.DateLayout), "last valid day, YYYY-MM-DD")
	fs.Parse(args)

	var err error
	if form.Fields.Start, err = time.ParseInLocation(passes.DateLayout, *start, time.Local); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if form.Fields.End, err = time.ParseInLocation(passes.DateLayout, *end, time.Local); err != nil {
		return fmt.Errorf("end: %w", err)
	}

	fmt.Println(intake.VisitingHours)
	err = form.Submit(ctx)
	if form.Message != "" {
		fmt.Println(form.Message)
	}
	return err
}

func runDelete(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "pass id to delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	fs.Parse(args)

	ctl := table.NewController(api, api)
	if err := ctl.Load(ctx); err != nil {
		return err
	}
	if err := ctl.RequestDelete(*id); err != nil {
		return fmt.Errorf("pass #%d: %w", *id, err)
	}

	if !*yes && !confirm(fmt.Sprintf("Delete pass #%d? This cannot be undone. [y/N] ", *id)) {
		ctl.CancelDelete()
		fmt.Println("Cancelled.")
		return nil
	}

	_, err := ctl.ConfirmDelete(ctx)
	if n := ctl.Notification(); n != nil {
		fmt.Println(n.Message)
	}
	return err
}

func runQR(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("qr", flag.ExitOnError)
	id := fs.Int64("id", 0, "pass id")
	out := fs.String("out", "", "output file, default pass-<id>.png")
	fs.Parse(args)

	png, err := api.PassQR(ctx, *id)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = fmt.Sprintf("pass-%d.png", *id)
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return err
	}
	fmt.Printf("Badge written to %s\n", path)
	return nil
}

func runDashboard(ctx context.Context, api *client.Client, args []string, refresh time.Duration, log *logger.Logger) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	watch := fs.Bool("watch", false, "keep refreshing until interrupted")
	interval := fs.Duration("interval", refresh, "refresh interval")
	fs.Parse(args)

	p := dashboard.NewPresenter(api, *interval, log)
	if !*watch {
		_ = p.Refresh(ctx)
		return p.View().Render(os.Stdout)
	}

	p.OnUpdate = func(v dashboard.View) {
		fmt.Print("\033[H\033[2J")
		_ = v.Render(os.Stdout)
	}
	return p.Run(ctx)
}

func runEvents(ctx context.Context, cfg *config.ConsoleConfig, log *logger.Logger) error {
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics, cfg.EventsGroup, log)
	defer consumer.Close()

	return consumer.Run(ctx, func(e models.PassEvent) {
		line := fmt.Sprintf("%s  %-22s #%d", e.OccurredAt.Local().Format("2006-01-02 15:04:05"), e.Type, e.PassID)
		if e.Pass != nil {
			line += fmt.Sprintf("  %s (%s to %s)", e.Pass.Name,
				e.Pass.DateStart.Format(passes.DateLayout), e.Pass.DateEnd.Format(passes.DateLayout))
		}
		fmt.Println(line)
	})
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
