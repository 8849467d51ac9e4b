package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"fwt-go/internal/app"
	"fwt-go/internal/config"
	"fwt-go/internal/fwt"
	"fwt-go/internal/nedb"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when no config
// file has been initialized yet.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.NewConfig(defaults["base_dir"]), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an FWTApp for the project containing
// dir (the working directory when dir is empty). The caller must defer
// a.Close(). operation identifies the CLI command being run (e.g. "Dedup").
func newApp(operation, dir string) (*app.FWTApp, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	a, err := app.NewFWTApp(cfg, operation, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}

// preset looks up a named preset and checks it was written for this command.
func preset(cfg *config.Config, name, command string) (config.Preset, error) {
	p, ok := cfg.Presets[name]
	if !ok {
		return config.Preset{}, fmt.Errorf("unknown preset %q", name)
	}
	if p.Command != "" && p.Command != command {
		return config.Preset{}, fmt.Errorf("preset %q is for the %s command", name, p.Command)
	}
	return p, nil
}

// confirm asks for confirmation on a terminal before a mutating run. With
// --yes, or when stdin is not a terminal, it proceeds without asking.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	yes, _ := cmd.Flags().GetBool("yes")
	if yes || !term.IsTerminal(int(os.Stdin.Fd())) {
		return true, nil
	}

	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// printReport lists every executed mapping and a summary line.
func printReport(report *fwt.BatchReport) {
	for _, res := range report.Results {
		switch {
		case res.Err != nil:
			fmt.Printf("FAIL  %s: %v\n", res.Mapping.Source, res.Err)
		case res.Mapping.Trash:
			fmt.Printf("trash %s  (%d refs in %d files)\n",
				res.Mapping.Source, res.Rewrite.Occurrences, res.Rewrite.Documents)
		case res.Mapping.Copy:
			fmt.Printf("copy  %s -> %s  (%d refs in %d files)\n",
				res.Mapping.Source, res.Mapping.Dest, res.Rewrite.Occurrences, res.Rewrite.Documents)
		default:
			fmt.Printf("move  %s -> %s  (%d refs in %d files)\n",
				res.Mapping.Source, res.Mapping.Dest, res.Rewrite.Occurrences, res.Rewrite.Documents)
		}
	}

	failed := len(report.Failed())
	fmt.Printf("%d applied, %d failed", report.Succeeded(), failed)
	if report.Session != "" {
		fmt.Printf(", staged in %s", report.Session)
	}
	fmt.Println()
}

var rootCmd = &cobra.Command{
	Use:   "fwt",
	Short: "Foundry world maintenance tool",
	Long:  "fwt reorganizes a Foundry VTT world's asset files and keeps its databases' path references consistent.",
}

// dedup command
var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicate assets, keeping one copy per group",
	RunE: func(cmd *cobra.Command, args []string) error {
		byName, _ := cmd.Flags().GetBool("byname")
		preferred, _ := cmd.Flags().GetStringArray("preferred")
		ext, _ := cmd.Flags().GetStringSlice("ext")
		exclude, _ := cmd.Flags().GetStringArray("exclude-dir")
		presetName, _ := cmd.Flags().GetString("preset")

		a, cfg, err := newApp("Dedup", "")
		if err != nil {
			return err
		}
		defer a.Close()

		if presetName != "" {
			p, err := preset(cfg, presetName, "dedup")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("byname") {
				byName = p.ByName
			}
			if len(preferred) == 0 {
				preferred = p.Preferred
			}
			if len(ext) == 0 {
				ext = p.Ext
			}
			exclude = append(exclude, p.ExcludeDirs...)
		}

		ok, err := confirm(cmd, "Remove duplicate assets and rewrite database references?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		report, err := a.Dedup(byName, preferred, ext, exclude)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

// renameall command
var renameAllCmd = &cobra.Command{
	Use:   "renameall",
	Short: "Rename assets in bulk using patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		remove, _ := cmd.Flags().GetStringArray("remove")
		replace, _ := cmd.Flags().GetStringArray("replace")
		lower, _ := cmd.Flags().GetBool("lower")
		ext, _ := cmd.Flags().GetStringSlice("ext")
		exclude, _ := cmd.Flags().GetStringArray("exclude-dir")
		presetName, _ := cmd.Flags().GetString("preset")

		a, cfg, err := newApp("RenameAll", "")
		if err != nil {
			return err
		}
		defer a.Close()

		if presetName != "" {
			p, err := preset(cfg, presetName, "renameall")
			if err != nil {
				return err
			}
			if len(remove) == 0 {
				remove = p.Remove
			}
			if len(replace) == 0 {
				replace = p.Replace
			}
			if !cmd.Flags().Changed("lower") {
				lower = p.Lower
			}
			if len(ext) == 0 {
				ext = p.Ext
			}
			exclude = append(exclude, p.ExcludeDirs...)
		}

		if len(remove) == 0 && len(replace) == 0 && !lower {
			return fmt.Errorf("nothing to do: give --remove, --replace or --lower")
		}

		ok, err := confirm(cmd, "Rename matching assets and rewrite database references?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		report, err := a.RenameAll(remove, replace, lower, ext, exclude)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

// rename command
var renameCmd = &cobra.Command{
	Use:   "rename SOURCE DEST",
	Short: "Move one asset, updating database references",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keepSrc, _ := cmd.Flags().GetBool("keep-src")

		a, _, err := newApp("Rename", "")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Rename(args[0], args[1], keepSrc)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

// replace command
var replaceCmd = &cobra.Command{
	Use:   "replace TARGET SOURCE",
	Short: "Swap the file behind TARGET with SOURCE, trashing the old file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp("Replace", "")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Replace(args[0], args[1])
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

// pull command
var pullCmd = &cobra.Command{
	Use:   "pull FROM TO",
	Short: "Copy referenced assets from another directory into the project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp("Pull", "")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Pull(args[0], args[1])
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download remote assets referenced by the databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		ext, _ := cmd.Flags().GetStringSlice("ext")
		types, _ := cmd.Flags().GetStringSlice("type")

		a, _, err := newApp("Download", "")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Download(cmd.Context(), dir, ext, types)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No remote assets found.")
			return nil
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("FAIL  %s: %v\n", r.URL, r.Err)
			} else {
				fmt.Printf("fetch %s -> %s\n", r.URL, r.Rel)
			}
		}
		fmt.Printf("%d downloaded, %d failed\n", len(results)-failed, failed)
		return nil
	},
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info [DIR]",
	Short: "Show the resolved project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}

		a, _, err := newApp("Info", dir)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.Info()
		if err != nil {
			return err
		}

		fmt.Printf("Project:      %s (%s)\n", info.Name, info.Type)
		fmt.Printf("Root:         %s\n", info.Root)
		fmt.Printf("Data root:    %s\n", info.DataRoot)
		fmt.Printf("Manifest:     %s\n", info.Manifest)
		fmt.Printf("Databases:    %d\n", info.Databases)
		fmt.Printf("Bad records:  %d\n", info.Malformed)
		fmt.Printf("Next session: session.%d\n", info.NextSession)
		return nil
	},
}

// convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert between database and YAML formats",
}

var convertDB2YAMLCmd = &cobra.Command{
	Use:   "db2yaml INPUT [OUTPUT]",
	Short: "Convert a .db file to a YAML document stream",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args, nedb.DBToYAML)
	},
}

var convertYAML2DBCmd = &cobra.Command{
	Use:   "yaml2db INPUT [OUTPUT]",
	Short: "Convert a YAML document stream back to a .db file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args, nedb.YAMLToDB)
	},
}

// runConvert reads the input file, converts it, and writes to the output
// file or stdout.
func runConvert(args []string, convert func(string) (string, error)) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	out, err := convert(string(data))
	if err != nil {
		return fmt.Errorf("converting %s: %w", args[0], err)
	}

	if len(args) < 2 {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(args[1], []byte(out), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", args[1], err)
	}
	return nil
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history [INVOCATION_ID]",
	Short: "View past invocations and their mappings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, _, err := newApp("History", "")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			mappings, err := a.HistoryMappings(args[0])
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				fmt.Println("No mappings recorded.")
				return nil
			}
			for _, m := range mappings {
				status := "ok"
				if m.Error != "" {
					status = m.Error
				}
				fmt.Printf("%s -> %s  trashed=%t  refs=%d  %s\n",
					m.Source, m.Dest, m.Trashed, m.Occurrences, status)
			}
			return nil
		}

		invocations, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(invocations) == 0 {
			fmt.Println("No invocations recorded.")
			return nil
		}
		for _, inv := range invocations {
			duration := ""
			if inv.FinishedAt.Valid {
				d := inv.FinishedAt.Time.Sub(inv.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-10s  %-12s  %s  %-8s  %s\n",
				inv.ID,
				inv.Command,
				inv.Project,
				inv.StartedAt.Format("2006-01-02 15:04:05"),
				inv.Status,
				duration,
			)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:  %s\n", cfg.DataDir)
		fmt.Printf("Trash Dir: %s\n", cfg.TrashDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("History:   %s\n", cfg.HistoryPath)
		for name, p := range cfg.Presets {
			fmt.Printf("Preset %s (%s): %s\n", name, p.Command, p.Description)
		}
		return nil
	},
}

func init() {
	dedupCmd.Flags().Bool("byname", false, "Group by directory and base name instead of content")
	dedupCmd.Flags().StringArrayP("preferred", "p", nil, "Regexp preferring which duplicate survives (repeatable, ordered)")
	dedupCmd.Flags().StringSlice("ext", nil, "Only consider these file extensions")
	dedupCmd.Flags().StringArray("exclude-dir", nil, "Directory glob to skip (repeatable)")
	dedupCmd.Flags().String("preset", "", "Apply a named preset from the config")
	dedupCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	renameAllCmd.Flags().StringArray("remove", nil, "Regexp removed from each path segment (repeatable)")
	renameAllCmd.Flags().StringArray("replace", nil, "Substitution /find/replacement/ applied to each path segment (repeatable)")
	renameAllCmd.Flags().Bool("lower", false, "Lowercase every path segment")
	renameAllCmd.Flags().StringSlice("ext", nil, "Only consider these file extensions")
	renameAllCmd.Flags().StringArray("exclude-dir", nil, "Directory glob to skip (repeatable)")
	renameAllCmd.Flags().String("preset", "", "Apply a named preset from the config")
	renameAllCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	renameCmd.Flags().Bool("keep-src", false, "Copy instead of move, leaving the source file in place")

	downloadCmd.Flags().String("dir", "assets", "Directory under the project root to download into")
	downloadCmd.Flags().StringSlice("ext", []string{"png", "jpg", "jpeg", "gif", "webp", "svg"}, "Remote asset extensions to download")
	downloadCmd.Flags().StringSlice("type", nil, "Only search these databases (e.g. actors,items)")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of invocations to show")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	convertCmd.AddCommand(convertDB2YAMLCmd)
	convertCmd.AddCommand(convertYAML2DBCmd)

	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(renameAllCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}
