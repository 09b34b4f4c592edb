package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/dupes"
	"mediacat/internal/scanner"
	"mediacat/internal/syncer"
	"mediacat/internal/thumbs"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// libraryRoot resolves the optional positional path argument. With no
// argument the current directory is the library root.
func libraryRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", root, err)
	}
	return abs, nil
}

// openCatalog opens an existing catalog at the library root. It does not
// create one; use "mediacat init" for that.
func openCatalog(root string) (*catalog.Catalog, error) {
	path := filepath.Join(root, catalog.DefaultFilename)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no catalog at %s (run \"mediacat init\" first)", path)
	}
	return catalog.Open(path)
}

var rootCmd = &cobra.Command{
	Use:   "mediacat",
	Short: "Media library catalog and duplicate finder",
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a catalog for a library",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := libraryRoot(args)
		if err != nil {
			return err
		}
		if _, err := scanner.New(root); err != nil {
			return err
		}

		path := filepath.Join(root, catalog.DefaultFilename)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("catalog already exists at %s", path)
		}

		cat, err := catalog.Open(path)
		if err != nil {
			return fmt.Errorf("creating catalog: %w", err)
		}
		defer cat.Close()

		fmt.Printf("Catalog created at %s\n", path)
		fmt.Println("Run \"mediacat sync\" to index the library.")
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Reconcile the catalog with the filesystem",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		incremental, _ := cmd.Flags().GetBool("incremental")
		hash, _ := cmd.Flags().GetBool("hash")
		orientation, _ := cmd.Flags().GetBool("orientation")
		perceptual, _ := cmd.Flags().GetBool("perceptual")
		workers, _ := cmd.Flags().GetInt("workers")

		root, err := libraryRoot(args)
		if err != nil {
			return err
		}
		cat, err := openCatalog(root)
		if err != nil {
			return err
		}
		defer cat.Close()

		scan, err := scanner.New(root)
		if err != nil {
			return err
		}
		cfg, err := config.Load(root)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		resolver, err := thumbs.New(cfg.ThumbnailDir)
		if err != nil {
			return fmt.Errorf("opening thumbnail cache: %w", err)
		}

		stats, err := syncer.New(cat, scan, resolver, cfg).Run(syncer.Options{
			Incremental: incremental,
			Hash:        hash,
			Orientation: orientation,
			Perceptual:  perceptual,
			Workers:     workers,
		})
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		printStats(stats)
		return nil
	},
}

func printStats(stats *syncer.Stats) {
	fmt.Printf("Directories: +%d -%d (%d moved)\n",
		stats.DirsAdded, stats.DirsRemoved, stats.DirsMoved)
	fmt.Printf("Files:       +%d -%d (%d modified)\n",
		stats.FilesAdded, stats.FilesRemoved, stats.FilesModified)
	if stats.DimensionsBackfilled > 0 {
		fmt.Printf("Dimensions:  %d backfilled\n", stats.DimensionsBackfilled)
	}
	if stats.OrientationTagged > 0 {
		fmt.Printf("Orientation: %d tagged\n", stats.OrientationTagged)
	}
	if stats.FilesHashed > 0 || stats.HashErrors > 0 {
		fmt.Printf("Hashed:      %d (%d errors)\n", stats.FilesHashed, stats.HashErrors)
	}
	if stats.PerceptualHashed > 0 || stats.PerceptualErrors > 0 {
		fmt.Printf("Perceptual:  %d (%d errors)\n", stats.PerceptualHashed, stats.PerceptualErrors)
	}
}

var dupesCmd = &cobra.Command{
	Use:   "dupes [path]",
	Short: "Report exact and near-duplicate files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, _ := cmd.Flags().GetInt("threshold")
		subdir, _ := cmd.Flags().GetString("subdir")
		asJSON, _ := cmd.Flags().GetBool("json")

		root, err := libraryRoot(args)
		if err != nil {
			return err
		}
		cat, err := openCatalog(root)
		if err != nil {
			return err
		}
		defer cat.Close()

		report, err := dupes.Find(cat, threshold, subdir)
		if err != nil {
			return fmt.Errorf("finding duplicates: %w", err)
		}

		if asJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		printReport(report)
		return nil
	},
}

func printReport(report *dupes.Report) {
	if len(report.Exact) == 0 && len(report.Near) == 0 {
		fmt.Println("No duplicates found.")
		return
	}
	for _, g := range report.Exact {
		fmt.Printf("Exact (%s):\n", g.Hash)
		for _, m := range g.Members {
			fmt.Printf("  %s\n", m.Path)
		}
	}
	for _, g := range report.Near {
		fmt.Printf("Similar (max distance %d):\n", g.MaxDistance)
		for _, m := range g.Members {
			fmt.Printf("  %s\n", m.Path)
		}
	}
	fmt.Printf("%d exact group(s), %d similar group(s)\n", len(report.Exact), len(report.Near))
}

var repairCmd = &cobra.Command{
	Use:   "repair [path]",
	Short: "Fix broken directory parent links",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := libraryRoot(args)
		if err != nil {
			return err
		}
		cat, err := openCatalog(root)
		if err != nil {
			return err
		}
		defer cat.Close()

		fixed, err := cat.RepairParents()
		if err != nil {
			return fmt.Errorf("repairing parents: %w", err)
		}
		if fixed == 0 {
			fmt.Println("All parent links intact.")
		} else {
			fmt.Printf("Fixed %d parent link(s).\n", fixed)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show catalog counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := libraryRoot(args)
		if err != nil {
			return err
		}
		cat, err := openCatalog(root)
		if err != nil {
			return err
		}
		defer cat.Close()

		sum, err := cat.Summarize()
		if err != nil {
			return fmt.Errorf("summarizing catalog: %w", err)
		}

		fmt.Printf("Catalog: %s\n\n", cat.Path())
		fmt.Printf("Directories:        %d\n", sum.Directories)
		fmt.Printf("Files:              %d\n", sum.Files)
		fmt.Printf("  Images:           %d\n", sum.Images)
		fmt.Printf("  Videos:           %d\n", sum.Videos)
		fmt.Printf("Tags:               %d\n", sum.Tags)
		fmt.Printf("Missing hash:       %d\n", sum.MissingHash)
		fmt.Printf("Missing dimensions: %d\n", sum.MissingDimensions)
		fmt.Printf("Missing perceptual: %d\n", sum.MissingPerceptual)
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("incremental", false, "Only rescan new or changed directories")
	syncCmd.Flags().Bool("hash", false, "Compute missing content hashes")
	syncCmd.Flags().Bool("orientation", false, "Tag images as landscape or portrait")
	syncCmd.Flags().Bool("perceptual", false, "Compute missing perceptual hashes")
	syncCmd.Flags().IntP("workers", "w", 0, "Parallel workers for compute passes (0 = auto)")

	dupesCmd.Flags().IntP("threshold", "t", dupes.DefaultThreshold, "Max Hamming distance for similar images")
	dupesCmd.Flags().StringP("subdir", "d", "", "Only report groups touching this subdirectory")
	dupesCmd.Flags().Bool("json", false, "Emit the report as JSON")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(statusCmd)
}
