package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cold-emailer/internal/jobs"
	"github.com/spigell/cold-emailer/internal/logger"
	"github.com/spigell/cold-emailer/internal/output"
	"github.com/spigell/cold-emailer/internal/pipeline"
)

const (
	PromptSave = "Save to file"
	PromptSkip = "Skip"
	PromptQuit = "Quit"
)

var errExit = errors.New("exit requested")

var savePrompt = promptui.Select{
	Label: "What to do with this email?",
	Items: []string{PromptSave, PromptSkip, PromptQuit},
}

var runCmd = &cobra.Command{
	Use:   "run [URL]",
	Short: "Generate cold emails for the job postings on a page",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("company", "", "company name (default is derived from the URL)")
	runCmd.Flags().String("recipient", "", "recipient name")
	runCmd.Flags().String("role", "", "role title used when a posting has none or auto role is off")
	runCmd.Flags().Bool("raw", false, "send raw page text to the model without cleaning")
	runCmd.Flags().Bool("no-auto-role", false, "always use --role instead of the role found in each posting")
	runCmd.Flags().BoolP("yes", "y", false, "do not ask anything; save every generated email")
	runCmd.Flags().Bool("dump", false, "dump the run report as JSON to a temporary file")
	runCmd.Flags().StringP("output-dir", "o", "", "directory for saved emails")

	viper.BindPFlag("output-dir", runCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("defaults.company", runCmd.Flags().Lookup("company"))
	viper.BindPFlag("defaults.recipient", runCmd.Flags().Lookup("recipient"))
	viper.BindPFlag("defaults.role", runCmd.Flags().Lookup("role"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		config = &Config{}
	}

	logger.Info("starting the cold-emailer", zap.String("version", resolveVersion()))

	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	autoApprove := flagBool(cmd, "yes")
	d := newDeps(ctx, config, logger)

	pageURL, err := resolveURL(args, config.Defaults.URL, autoApprove)
	if err != nil {
		logger.Fatal("getting the job page url", zap.Error(err))
	}

	p, err := d.pipeline()
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	req := pipeline.Request{
		URL:       pageURL,
		Company:   config.Defaults.Company,
		Recipient: config.Defaults.Recipient,
		Role:      config.Defaults.Role,
		Raw:       flagBool(cmd, "raw"),
		AutoRole:  !flagBool(cmd, "no-auto-role"),
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		if code := reportRunError(logger, err); code != 0 {
			os.Exit(code)
		}
		return
	}

	for _, step := range res.Steps {
		logger.Debug("pipeline step", zap.String("name", step.Name), zap.Int("count", step.Count))
	}

	if res.Warning != nil {
		logger.Warn("exiting",
			zap.String("reason", res.Warning.Error()),
			zap.String("preview", res.Preview),
		)
		return
	}

	if flagBool(cmd, "dump") {
		filename, err := output.DumpToTmpFile("cold_emails_*.json", newReport(res))
		if err != nil {
			logger.Error("dump results to file", zap.Error(err))
		} else {
			logger.Info("dumping result to file", zap.String("filename", filename))
		}
	}

	if err := handleJobs(res, config.OutputDir, autoApprove, logger); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func handleJobs(res *pipeline.Result, outputDir string, autoApprove bool, logger *zap.Logger) error {
	saved := 0
	for _, job := range res.Jobs {
		if job.Err != nil {
			logger.Error("skipping job without email",
				zap.Int("job", job.Index+1),
				zap.String("role", job.Role),
				zap.Error(job.Err),
			)
			continue
		}

		printJob(res.Company, job)

		action := PromptSave
		if !autoApprove {
			var err error
			_, action, err = savePrompt.Run()
			if err != nil {
				return err
			}
		}

		switch action {
		case PromptSave:
			path, err := output.Save(outputDir, job.FileName, job.Email)
			if err != nil {
				return err
			}
			saved++
			logger.Info("email saved", zap.String("path", path))
		case PromptSkip:
			continue
		case PromptQuit:
			logger.Info("exiting", zap.String("reason", "got quit from prompt"))
			return errExit
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}

	logger.Info("done", zap.Int("jobs", len(res.Jobs)), zap.Int("saved", saved))
	return nil
}

func printJob(company string, job pipeline.JobResult) {
	fmt.Printf("\n=== Job %d: %s @ %s ===\n", job.Index+1, job.Role, company)
	if len(job.Matches) > 0 {
		fmt.Printf("Matched techstack: %s\n", strings.Join(job.Matches, "; "))
	}
	if len(job.References) > 0 {
		fmt.Printf("References: %s\n", strings.Join(job.References, ", "))
	}
	fmt.Printf("\n%s\n", job.Email)
}

func resolveURL(args []string, fallback string, autoApprove bool) (string, error) {
	if len(args) > 0 {
		return args[0], validateURL(args[0])
	}
	if autoApprove {
		if fallback == "" {
			return "", errors.New("url argument is required with --yes")
		}
		return fallback, validateURL(fallback)
	}

	urlPrompt := promptui.Prompt{
		Label:    "Job page URL",
		Default:  fallback,
		Validate: validateURL,
	}
	return urlPrompt.Run()
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("not an http(s) url: %q", raw)
	}
	return nil
}

func flagBool(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)
	return flag != nil && strings.EqualFold(flag.Value.String(), "true")
}

// redacted returns a copy of config safe to log.
func redacted(config *Config) *Config {
	c := *config
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		ai := *c.AI
		g := *ai.Gemini
		g.APIKey = "***"
		ai.Gemini = &g
		c.AI = &ai
	}
	return &c
}

type reportJob struct {
	Job        int          `json:"job"`
	Role       string       `json:"role"`
	Posting    jobs.Posting `json:"posting"`
	Matches    []string     `json:"matches"`
	References []string     `json:"references,omitempty"`
	FileName   string       `json:"file_name"`
	Email      string       `json:"email,omitempty"`
	Error      string       `json:"error,omitempty"`
}

type report struct {
	Company   string      `json:"company"`
	Recipient string      `json:"recipient"`
	Jobs      []reportJob `json:"jobs"`
}

func newReport(res *pipeline.Result) *report {
	r := &report{Company: res.Company, Recipient: res.Recipient}
	for _, job := range res.Jobs {
		item := reportJob{
			Job:        job.Index + 1,
			Role:       job.Role,
			Posting:    job.Posting,
			Matches:    job.Matches,
			References: job.References,
			FileName:   job.FileName,
			Email:      job.Email,
		}
		if job.Err != nil {
			item.Error = job.Err.Error()
		}
		r.Jobs = append(r.Jobs, item)
	}
	return r
}

// reportRunError logs a pipeline failure and returns the process exit code.
// A model reply that could not be parsed is reported with a hint and exits 0.
func reportRunError(logger *zap.Logger, err error) int {
	if errors.Is(err, jobs.ErrUnparseableResponse) {
		logger.Error("job extraction failed",
			zap.Error(err),
			zap.String("hint", "the page may be too big for the model; try the url of a single posting"),
		)
		return 0
	}

	logger.Error("running the pipeline", zap.Error(err))
	return 1
}
