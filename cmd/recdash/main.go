// Package main provides the CLI entrypoint for recdash.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/recdash/internal/api"
	"github.com/verte-zerg/recdash/internal/config"
	"github.com/verte-zerg/recdash/internal/dashboard"
	"github.com/verte-zerg/recdash/internal/format"
	"github.com/verte-zerg/recdash/internal/logging"
	"github.com/verte-zerg/recdash/internal/model"
)

const (
	defaultBaseURL       = "http://localhost:8000"
	defaultStatsInterval = dashboard.DefaultStatsInterval
	defaultNumRecs       = dashboard.DefaultNumRecs
	defaultTimeout       = time.Duration(0)
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
	defaultChartWidth    = 80
	cliChartHeight       = 14
)

var (
	baseURL   string
	timeout   time.Duration
	logLevel  string
	logFormat string
	logFile   string

	statsInterval time.Duration
	numRecs       string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recdash",
		Short:         "Terminal dashboard for the recommendation engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runDashboardCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&baseURL, "base-url", defaultBaseURL, "recommendation API base URL")
	flags.DurationVar(&timeout, "timeout", defaultTimeout, "per-request timeout (0 disables)")
	flags.StringVar(&logLevel, "log-level", defaultLogLevel, "log level: trace, debug, info, warn, error, disabled")
	flags.StringVar(&logFormat, "log-format", defaultLogFormat, "log format: json or console")
	flags.StringVar(&logFile, "log-file", "", "log file (dashboard default: "+config.DefaultLogPath()+")")

	rootCmd.Flags().DurationVar(&statsInterval, "interval", defaultStatsInterval, "stats polling interval")
	rootCmd.Flags().StringVar(&numRecs, "num", defaultNumRecs, "initial number of recommendations")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newRecommendCmd())
	rootCmd.AddCommand(newChartsCmd())

	return rootCmd
}

// loadSettings merges the config file into every flag the user did not set.
func loadSettings(cmd *cobra.Command) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "base-url", &baseURL, fileCfg.Dashboard.BaseURL)
	applyDurationConfig(cmd, "timeout", &timeout, fileCfg.Dashboard.Timeout)
	applyDurationConfig(cmd, "interval", &statsInterval, fileCfg.Dashboard.StatsInterval)
	applyStringConfig(cmd, "num", &numRecs, fileCfg.Dashboard.NumRecs)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	return validateSettings()
}

func validateSettings() error {
	if strings.TrimSpace(baseURL) == "" {
		return fmt.Errorf("--base-url must not be empty")
	}
	if statsInterval <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}
	if timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0")
	}
	if !logging.ValidFormat(logFormat) {
		return fmt.Errorf("--log-format must be json or console")
	}
	return nil
}

// setupLogging points the global logger at path, or at fallback when path is
// empty. The returned closer is never nil.
func setupLogging(path string, fallback io.Writer) (func(), error) {
	if path == "" {
		logging.Init(logging.Config{Level: logLevel, Format: logFormat, Output: fallback})
		return func() {}, nil
	}
	f, err := logging.OpenFile(expandHome(path))
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: logLevel, Format: logFormat, Output: f})
	return func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}, nil
}

func newClient() (*api.Client, error) {
	client, err := api.New(baseURL, api.WithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	return client, nil
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	if err := loadSettings(cmd); err != nil {
		return err
	}
	path := logFile
	if path == "" {
		path = config.DefaultLogPath()
	}
	closeLog, err := setupLogging(path, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := dashboard.NewModel(ctx, client, dashboard.Options{
		StatsInterval: statsInterval,
		NumRecs:       numRecs,
		Source:        client.BaseURL(),
	})
	if err != nil {
		return err
	}
	logging.Info().
		Str("base_url", client.BaseURL()).
		Dur("stats_interval", statsInterval).
		Msg("dashboard started")

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Fetch the stats endpoint once and print it",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if err := loadSettings(cmd); err != nil {
		return err
	}
	closeLog, err := setupLogging(logFile, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snapshot, err := client.Stats(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load stats")
		return fmt.Errorf("failed to load stats: %w", err)
	}
	logging.Debug().Int("keys", len(snapshot)).Msg("stats loaded")
	lines := format.Table([]string{"Metric", "Value"}, statsRows(snapshot), map[int]bool{1: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// statsRows flattens a snapshot into sorted key/value rows.
func statsRows(snapshot model.StatsSnapshot) [][]string {
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, statValue(snapshot[k])})
	}
	return rows
}

func statValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if math.Abs(val) < 1<<63 && val == math.Trunc(val) {
			return format.FormatNumber(int64(val))
		}
		return format.FormatDigits(strconv.FormatFloat(val, 'f', -1, 64))
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend USER_ID",
		Short: "Fetch recommendations once and print them",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecommendCmd,
	}
	cmd.Flags().StringVarP(&numRecs, "num", "n", defaultNumRecs, "number of recommendations")
	return cmd
}

func runRecommendCmd(cmd *cobra.Command, args []string) error {
	if err := loadSettings(cmd); err != nil {
		return err
	}
	closeLog, err := setupLogging(logFile, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	userID := strings.TrimSpace(args[0])
	if userID == "" {
		return fmt.Errorf("%s", dashboard.NoticeEmptyUserID)
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	payload, err := client.Recommend(ctx, userID, numRecs)
	clientLatency := dashboard.FormatElapsed(time.Since(start))
	if err != nil {
		logging.Error().Err(err).Msg("failed to get recommendations")
		return fmt.Errorf("failed to get recommendations: %w", err)
	}
	result, err := dashboard.ParseRecommendations(payload)
	if err != nil {
		return err
	}
	return writeRecommendations(cmd.OutOrStdout(), result, clientLatency)
}

func writeRecommendations(w io.Writer, result model.RecommendationResult, clientLatency string) error {
	var b strings.Builder
	for i, rec := range result.Items {
		for _, line := range dashboard.CardLines(i+1, rec) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Latency: %s ms\n", dashboard.LatencyLabel(result, clientLatency))
	fmt.Fprintf(&b, "Model: %s\n", dashboard.ModelLabel)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newChartsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "charts",
		Short: "Print the sample charts",
		Args:  cobra.NoArgs,
		RunE:  runChartsCmd,
	}
}

func runChartsCmd(cmd *cobra.Command, _ []string) error {
	charts, err := dashboard.InitCharts()
	if err != nil {
		return err
	}
	charts.Resize(terminalWidth(), cliChartHeight)
	out := strings.Join([]string{
		"Response Time (ms)",
		charts.Latency.Render(),
		"",
		"Model Accuracy (%)",
		charts.Model.Render(),
	}, "\n")
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultChartWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultChartWidth
	}
	return width
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	flag := cmd.Flags().Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	flag := cmd.Flags().Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	*target = value.Duration
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# recdash configuration
# Uncomment a value to enable it. CLI flags override config values.

[dashboard]
# base-url = %q   # Recommendation API base URL
# stats-interval = %q           # Stats polling interval
# num-recs = %q                 # Initial number of recommendations
# timeout = %q                  # Per-request timeout, "0s" disables

[log]
# level = %q                  # trace, debug, info, warn, error, disabled
# format = %q                 # json or console
# file = %q
`,
		defaultBaseURL,
		defaultStatsInterval.String(),
		defaultNumRecs,
		defaultTimeout.String(),
		defaultLogLevel,
		defaultLogFormat,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
