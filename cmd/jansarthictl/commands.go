package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"jansarthi-be/client"
	"jansarthi-be/config"
	"jansarthi-be/models"
	"jansarthi-be/store"
	"jansarthi-be/store/memstore"
	"jansarthi-be/store/mongostore"
)

// api is built from the config before any subcommand runs.
var api *client.Client

var (
	rootCmd = &cobra.Command{
		Use:           "jansarthictl",
		Short:         "Command line client for the Jansarthi civic issue service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			if api == nil {
				api = client.New(cfg.BaseURL, &client.FileStore{Path: cfg.SessionPath})
			}
			return nil
		},
	}
	configPath string
	baseURL    string

	// --- Auth ---
	signupCmd = &cobra.Command{
		Use:   "signup [name] [mobile]",
		Short: "Register a new citizen account and send an OTP",
		Args:  cobra.ExactArgs(2),
		RunE:  runSignup,
	}
	loginCmd = &cobra.Command{
		Use:   "login [mobile]",
		Short: "Send a login OTP to a registered number",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogin,
	}
	resendCmd = &cobra.Command{
		Use:   "resend [mobile]",
		Short: "Send a fresh OTP",
		Args:  cobra.ExactArgs(1),
		RunE:  runResend,
	}
	verifyCmd = &cobra.Command{
		Use:   "verify [mobile] [code]",
		Short: "Verify the OTP and store the session",
		Args:  cobra.ExactArgs(2),
		RunE:  runVerify,
	}
	meCmd = &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		RunE:  runMe,
	}
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}

	// --- Reports ---
	reportsCmd = &cobra.Command{
		Use:   "reports",
		Short: "Create and browse issue reports",
	}
	reportsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List your own reports",
		RunE:  runReportsList,
	}
	reportsShowCmd = &cobra.Command{
		Use:   "show [issue_id]",
		Short: "Show one report with its progress",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportsShow,
	}
	reportsCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Report a new issue, optionally with photos",
		RunE:  runReportsCreate,
	}
	reportsMapCmd = &cobra.Command{
		Use:   "map",
		Short: "List reports around a point and the box that contains them",
		RunE:  runReportsMap,
	}
	listPage      int
	listPageSize  int
	listType      string
	listStatus    string
	reportType    string
	reportDesc    string
	reportWard    int
	reportPhotos  []string
	pointLat      float64
	pointLon      float64
	mapRadius     float64
	listSearch    string
	assignNotes   string
	stepNotes     string
	parshadName   string
	parshadMobile string
	parshadVill   string

	// --- Wards ---
	wardsCmd = &cobra.Command{
		Use:   "wards [search]",
		Short: "List wards, optionally filtered by English or Hindi name",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWards,
	}

	// --- PWD ---
	pwdCmd = &cobra.Command{
		Use:   "pwd",
		Short: "PWD worker operations",
	}
	pwdDashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Show the PWD dashboard counts",
		RunE:  runPWDDashboard,
	}
	pwdIssuesCmd = &cobra.Command{
		Use:   "issues",
		Short: "List all issues",
		RunE:  runPWDIssues,
	}
	pwdAssignCmd = &cobra.Command{
		Use:   "assign [issue_id] [parshad_id]",
		Short: "Assign an issue to a Parshad",
		Args:  cobra.ExactArgs(2),
		RunE:  runPWDAssign,
	}
	pwdParshadsCmd = &cobra.Command{
		Use:   "parshads",
		Short: "List Parshads",
		RunE:  runPWDParshads,
	}
	pwdCreateParshadCmd = &cobra.Command{
		Use:   "create-parshad",
		Short: "Create a Parshad or promote an existing user",
		RunE:  runPWDCreateParshad,
	}

	// --- Parshad ---
	parshadCmd = &cobra.Command{
		Use:   "parshad",
		Short: "Parshad operations on assigned issues",
	}
	parshadDashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Show your assignment counts",
		RunE:  runParshadDashboard,
	}
	parshadIssuesCmd = &cobra.Command{
		Use:   "issues",
		Short: "List issues assigned to you",
		RunE:  runParshadIssues,
	}
	parshadAckCmd = &cobra.Command{
		Use:   "ack [issue_id]",
		Short: "Acknowledge an assigned issue",
		Args:  cobra.ExactArgs(1),
		RunE:  runParshadStep("ack"),
	}
	parshadStartCmd = &cobra.Command{
		Use:   "start [issue_id]",
		Short: "Mark work as started",
		Args:  cobra.ExactArgs(1),
		RunE:  runParshadStep("start"),
	}
	parshadCompleteCmd = &cobra.Command{
		Use:   "complete [issue_id]",
		Short: "Mark work as finished",
		Args:  cobra.ExactArgs(1),
		RunE:  runParshadStep("complete"),
	}

	// --- Clusters ---
	clustersCmd = &cobra.Command{
		Use:   "clusters",
		Short: "Geographic clusters and Parshad lookup",
	}
	findParshadCmd = &cobra.Command{
		Use:   "find-parshad",
		Short: "Find the Parshad responsible for a location",
		RunE:  runFindParshad,
	}
	runClusteringCmd = &cobra.Command{
		Use:   "run",
		Short: "Rebuild clusters from reported issues",
		RunE:  runClustering,
	}
	minClusterSize int
	epsMeters      float64

	// --- Admin, straight to the store ---
	adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "One-off tasks that bypass the API",
	}
	createPWDWorkerCmd = &cobra.Command{
		Use:   "create-pwd-worker",
		Short: "Create a PWD worker account, or promote an existing user",
		Long:  `Writes directly to the database configured by mongo_uri and mongo_database. PWD workers cannot be created through the API.`,
		RunE:  runCreatePWDWorker,
	}
	workerName   string
	workerMobile string
	storeDriver  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.jansarthi/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override the API base URL")

	rootCmd.AddCommand(signupCmd, loginCmd, resendCmd, verifyCmd, meCmd, logoutCmd)

	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsCreateCmd, reportsMapCmd)
	for _, c := range []*cobra.Command{reportsListCmd, pwdIssuesCmd, parshadIssuesCmd} {
		c.Flags().IntVar(&listPage, "page", 0, "Page number (server default when 0)")
		c.Flags().IntVar(&listPageSize, "page-size", 0, "Items per page (server default when 0)")
		c.Flags().StringVar(&listType, "type", "", "Filter by issue type")
		c.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	}
	pwdIssuesCmd.Flags().StringVar(&listSearch, "search", "", "Search in descriptions")
	reportsCreateCmd.Flags().StringVar(&reportType, "type", "", "Issue type: water, electricity, road, garbage or sewerage")
	reportsCreateCmd.Flags().StringVar(&reportDesc, "description", "", "What is wrong (10 to 2000 characters)")
	reportsCreateCmd.Flags().IntVar(&reportWard, "ward", 0, "Ward number, if known")
	reportsCreateCmd.Flags().StringSliceVar(&reportPhotos, "photo", nil, "Photo file to attach (repeatable)")
	_ = reportsCreateCmd.MarkFlagRequired("type")
	_ = reportsCreateCmd.MarkFlagRequired("description")
	for _, c := range []*cobra.Command{reportsCreateCmd, reportsMapCmd, findParshadCmd} {
		c.Flags().Float64Var(&pointLat, "lat", 0, "Latitude")
		c.Flags().Float64Var(&pointLon, "lon", 0, "Longitude")
		_ = c.MarkFlagRequired("lat")
		_ = c.MarkFlagRequired("lon")
	}
	reportsMapCmd.Flags().Float64Var(&mapRadius, "radius", 0, "Search radius in km (server default when 0)")

	rootCmd.AddCommand(wardsCmd)

	rootCmd.AddCommand(pwdCmd)
	pwdCmd.AddCommand(pwdDashboardCmd, pwdIssuesCmd, pwdAssignCmd, pwdParshadsCmd, pwdCreateParshadCmd)
	pwdAssignCmd.Flags().StringVar(&assignNotes, "notes", "", "Assignment notes")
	pwdParshadsCmd.Flags().StringVar(&listSearch, "search", "", "Search by name or village")
	pwdCreateParshadCmd.Flags().StringVar(&parshadName, "name", "", "Full name")
	pwdCreateParshadCmd.Flags().StringVar(&parshadMobile, "mobile", "", "Mobile number")
	pwdCreateParshadCmd.Flags().StringVar(&parshadVill, "village", "", "Village name")
	_ = pwdCreateParshadCmd.MarkFlagRequired("name")
	_ = pwdCreateParshadCmd.MarkFlagRequired("mobile")

	rootCmd.AddCommand(parshadCmd)
	parshadCmd.AddCommand(parshadDashboardCmd, parshadIssuesCmd, parshadAckCmd, parshadStartCmd, parshadCompleteCmd)
	parshadStartCmd.Flags().StringVar(&stepNotes, "notes", "", "Progress notes")
	parshadCompleteCmd.Flags().StringVar(&stepNotes, "notes", "", "Progress notes")

	rootCmd.AddCommand(clustersCmd)
	clustersCmd.AddCommand(findParshadCmd, runClusteringCmd)
	runClusteringCmd.Flags().IntVar(&minClusterSize, "min-samples", 0, "Minimum issues per cluster")
	runClusteringCmd.Flags().Float64Var(&epsMeters, "eps", 0, "Neighbourhood radius in meters")

	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(createPWDWorkerCmd)
	createPWDWorkerCmd.Flags().StringVar(&workerName, "name", "", "Full name")
	createPWDWorkerCmd.Flags().StringVar(&workerMobile, "mobile", "", "Mobile number")
	createPWDWorkerCmd.Flags().StringVar(&storeDriver, "store", "mongo", "Store driver: mongo or memory")
	_ = createPWDWorkerCmd.MarkFlagRequired("name")
	_ = createPWDWorkerCmd.MarkFlagRequired("mobile")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func listParams() client.ListParams {
	return client.ListParams{
		Page:      listPage,
		PageSize:  listPageSize,
		IssueType: models.IssueType(listType),
		Status:    models.IssueStatus(listStatus),
	}
}

func runSignup(cmd *cobra.Command, args []string) error {
	resp, err := api.Signup(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	printOTP(cmd.OutOrStdout(), resp)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	resp, err := api.Login(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printOTP(cmd.OutOrStdout(), resp)
	return nil
}

func runResend(cmd *cobra.Command, args []string) error {
	resp, err := api.ResendOTP(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printOTP(cmd.OutOrStdout(), resp)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	resp, err := api.VerifyOTP(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", resp.User.Name)
	printUser(cmd.OutOrStdout(), &resp.User)
	return nil
}

func runMe(cmd *cobra.Command, args []string) error {
	u, err := api.Me(cmd.Context())
	if err != nil {
		return err
	}
	printUser(cmd.OutOrStdout(), u)
	return nil
}

func runReportsList(cmd *cobra.Command, args []string) error {
	page, err := api.MyReports(cmd.Context(), listParams())
	if err != nil {
		return err
	}
	printIssues(cmd.OutOrStdout(), page.Items)
	printPageFooter(cmd.OutOrStdout(), page.Page, page.TotalPages, page.Total)
	return nil
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	issue, err := api.Report(cmd.Context(), id)
	if err != nil {
		return err
	}
	printIssue(cmd.OutOrStdout(), issue)
	return nil
}

func readPhotos(paths []string) ([]client.Photo, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	photos := make([]client.Photo, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		ct := mime.TypeByExtension(filepath.Ext(p))
		if ct == "" {
			ct = "application/octet-stream"
		}
		photos = append(photos, client.Photo{Filename: filepath.Base(p), ContentType: ct, Data: f})
	}
	return photos, closeAll, nil
}

func runReportsCreate(cmd *cobra.Command, args []string) error {
	photos, closeAll, err := readPhotos(reportPhotos)
	if err != nil {
		return err
	}
	defer closeAll()

	r := client.NewReport{
		IssueType:   models.IssueType(reportType),
		Description: reportDesc,
		Latitude:    pointLat,
		Longitude:   pointLon,
		Photos:      photos,
	}
	if reportWard > 0 {
		r.WardID = &reportWard
	}
	issue, err := api.CreateReport(cmd.Context(), r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report #%d created.\n", issue.ID)
	printIssue(cmd.OutOrStdout(), issue)
	return nil
}

func runReportsMap(cmd *cobra.Command, args []string) error {
	items, err := api.MapReports(cmd.Context(), client.MapQuery{
		Latitude:  pointLat,
		Longitude: pointLon,
		RadiusKM:  mapRadius,
	})
	if err != nil {
		return err
	}
	printMap(cmd.OutOrStdout(), items)
	return nil
}

func runWards(cmd *cobra.Command, args []string) error {
	var search string
	if len(args) == 1 {
		search = args[0]
	}
	list, err := api.Wards(cmd.Context(), search)
	if err != nil {
		return err
	}
	printWards(cmd.OutOrStdout(), list)
	return nil
}

func runPWDDashboard(cmd *cobra.Command, args []string) error {
	d, err := api.PWDDashboard(cmd.Context())
	if err != nil {
		return err
	}
	printPWDDashboard(cmd.OutOrStdout(), d)
	return nil
}

func runPWDIssues(cmd *cobra.Command, args []string) error {
	page, err := api.PWDIssues(cmd.Context(), listParams(), listSearch)
	if err != nil {
		return err
	}
	printAdminIssues(cmd.OutOrStdout(), page.Items)
	printPageFooter(cmd.OutOrStdout(), page.Page, page.TotalPages, page.Total)
	return nil
}

func runPWDAssign(cmd *cobra.Command, args []string) error {
	issueID, err := parseID(args[0])
	if err != nil {
		return err
	}
	parshadID, err := parseID(args[1])
	if err != nil {
		return err
	}
	issue, err := api.AssignIssue(cmd.Context(), issueID, parshadID, assignNotes)
	if err != nil {
		return err
	}
	name := "?"
	if issue.AssignedParshad != nil {
		name = issue.AssignedParshad.Name
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Issue #%d assigned to %s.\n", issue.ID, name)
	return nil
}

func runPWDParshads(cmd *cobra.Command, args []string) error {
	list, err := api.Parshads(cmd.Context(), listSearch)
	if err != nil {
		return err
	}
	printParshads(cmd.OutOrStdout(), list)
	return nil
}

func runPWDCreateParshad(cmd *cobra.Command, args []string) error {
	p := client.NewParshad{Name: parshadName, MobileNumber: parshadMobile}
	if parshadVill != "" {
		p.VillageName = &parshadVill
	}
	u, err := api.CreateParshad(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Parshad #%d ready.\n", u.ID)
	printUser(cmd.OutOrStdout(), &u.User)
	return nil
}

func runParshadDashboard(cmd *cobra.Command, args []string) error {
	d, err := api.ParshadDashboard(cmd.Context())
	if err != nil {
		return err
	}
	printParshadDashboard(cmd.OutOrStdout(), d)
	return nil
}

func runParshadIssues(cmd *cobra.Command, args []string) error {
	page, err := api.AssignedIssues(cmd.Context(), listParams())
	if err != nil {
		return err
	}
	printAdminIssues(cmd.OutOrStdout(), page.Items)
	printPageFooter(cmd.OutOrStdout(), page.Page, page.TotalPages, page.Total)
	return nil
}

func runParshadStep(step string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var issue *models.AdminIssueResponse
		switch step {
		case "ack":
			issue, err = api.Acknowledge(cmd.Context(), id)
		case "start":
			issue, err = api.StartWork(cmd.Context(), id, stepNotes)
		case "complete":
			issue, err = api.CompleteWork(cmd.Context(), id, stepNotes)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Issue #%d is now %s.\n", issue.ID, issue.Status.Label())
		printTracker(cmd.OutOrStdout(), issue.Status)
		return nil
	}
}

func runFindParshad(cmd *cobra.Command, args []string) error {
	resp, err := api.FindParshad(cmd.Context(), pointLat, pointLon)
	if err != nil {
		return err
	}
	printLookup(cmd.OutOrStdout(), resp)
	return nil
}

func runClustering(cmd *cobra.Command, args []string) error {
	resp, err := api.RunClustering(cmd.Context(), minClusterSize, epsMeters)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	fmt.Fprintf(cmd.OutOrStdout(), "Noise points: %d of %d\n", resp.NumNoisePoints, resp.TotalPointsProcessed)
	return nil
}

func openStore(ctx context.Context, driver string, cfg CLIConfig) (store.Store, error) {
	switch driver {
	case "memory":
		return memstore.New(), nil
	case "mongo":
		db, err := config.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		ms := mongostore.New(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			_ = ms.Close(context.Background())
			return nil, err
		}
		return ms, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func runCreatePWDWorker(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, storeDriver, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	u, created, err := seedPWDWorker(ctx, st, workerName, workerMobile, time.Now().UTC())
	if err != nil {
		return err
	}
	verb := "Promoted"
	if created {
		verb = "Created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s PWD worker #%d.\n", verb, u.ID)
	printUser(cmd.OutOrStdout(), u)
	return nil
}
