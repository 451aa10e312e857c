package main

import (
	"fmt"
	"io"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/autorig/engine"
	"github.com/spaghettifunk/autorig/engine/assets/loaders"
	"github.com/spaghettifunk/autorig/engine/config"
	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
	"github.com/spaghettifunk/autorig/engine/mesh"
	"github.com/spaghettifunk/autorig/engine/preview"
	"github.com/spaghettifunk/autorig/engine/rig"
)

// rigFlags override the [rig] section of the config file when set.
type rigFlags struct {
	weightThreshold float64
	lowQuantile     float64
	highQuantile    float64
	connectFactor   float64
	workers         int
}

// NewCommand creates the autorig command tree.
//
// Commands provided:
//   - autorig bone <mesh> --region NAME
//   - autorig skeleton <mesh> [--regions a,b] [--out FILE] [--preview FILE] [--watch]
//   - autorig regions <mesh> [--prune --out FILE]
//   - autorig match <dest> <source> --out FILE [--renumber]
//
// Global flags: --config, --log-level and the rig parameter overrides.
func NewCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
		rf         rigFlags
	)

	// Engine will be created in PersistentPreRunE
	var eng *engine.Engine

	cmd := &cobra.Command{
		Use:   "autorig",
		Short: "Infer skeleton bones from weighted vertex groups",
		Long: "Fit one bone per vertex group of a mesh along the group's principal axis,\n" +
			"and optionally connect the bones into a hierarchy.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip engine creation for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			eng, err = engine.New(nil, configPath)
			if err != nil {
				return err
			}
			cfg := eng.Config()
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			applyRigFlags(cmd, cfg, &rf)
			if err := eng.Initialize(); err != nil {
				_ = eng.Shutdown()
				return err
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if eng == nil {
				return nil
			}
			return eng.Shutdown()
		},
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.Float64Var(&rf.weightThreshold, "weight-threshold", rig.DefaultWeightThreshold, "Minimum vertex weight that counts towards a region")
	flags.Float64Var(&rf.lowQuantile, "low-quantile", rig.DefaultLowQuantile, "Quantile of the projected points placing the tail")
	flags.Float64Var(&rf.highQuantile, "high-quantile", rig.DefaultHighQuantile, "Quantile of the projected points placing the head")
	flags.Float64Var(&rf.connectFactor, "connect-factor", 0, "Connect bones closer than mean length times this factor, 0 disables")
	flags.IntVar(&rf.workers, "workers", 1, "Regions fitted concurrently")

	// Add subcommands
	cmd.AddCommand(boneCmd(&eng))
	cmd.AddCommand(skeletonCmd(&eng))
	cmd.AddCommand(regionsCmd(&eng))
	cmd.AddCommand(matchCmd(&eng))

	return cmd
}

// applyRigFlags copies every explicitly set rig flag over the loaded config
// and clamps the result again.
func applyRigFlags(cmd *cobra.Command, cfg *config.Config, rf *rigFlags) {
	f := cmd.Flags()
	if f.Changed("weight-threshold") {
		cfg.Rig.WeightThreshold = rf.weightThreshold
	}
	if f.Changed("low-quantile") {
		cfg.Rig.LowQuantile = rf.lowQuantile
	}
	if f.Changed("high-quantile") {
		cfg.Rig.HighQuantile = rf.highQuantile
	}
	if f.Changed("connect-factor") {
		cfg.Rig.ConnectFactor = rf.connectFactor
	}
	if f.Changed("workers") {
		cfg.Rig.Workers = rf.workers
	}
	cfg.Normalize()
}

func boneCmd(eng **engine.Engine) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "bone <mesh>",
		Short: "Fit a single bone to one region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := (*eng).LoadMesh(args[0])
			if err != nil {
				return err
			}
			b, err := (*eng).FitBone(m, region)
			if err != nil {
				return err
			}
			if b == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no bone, region is empty\n", region)
				return nil
			}
			return outputBones(cmd.OutOrStdout(), []rig.Bone{*b}, nil)
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Region (vertex group) to fit")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func skeletonCmd(eng **engine.Engine) *cobra.Command {
	var (
		regions     []string
		out         string
		previewPath string
		view        string
		yaw         float64
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "skeleton <mesh>",
		Short: "Fit one bone per region and connect them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			popts := preview.DefaultOptions()
			if previewPath != "" {
				v, err := preview.ParseView(view)
				if err != nil {
					return fmt.Errorf("%w: %w", core.ErrMalformedInput, err)
				}
				popts.View = v
				popts.Yaw = yaw
			}
			var selected []string
			if len(regions) > 0 {
				selected = regions
			}

			emit := func(s *rig.Skeleton) error {
				if err := outputBones(cmd.OutOrStdout(), s.Bones, s.Parents); err != nil {
					return err
				}
				if out != "" {
					if err := loaders.SaveSkeleton(out, s); err != nil {
						return fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
					}
					core.LogInfo("skeleton written to %s", out)
				}
				if previewPath != "" {
					if err := preview.SavePNG(previewPath, s, popts); err != nil {
						return fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
					}
					core.LogInfo("preview written to %s", previewPath)
				}
				return nil
			}

			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
				defer stop()
				return (*eng).Run(ctx, args[0], selected, emit)
			}

			m, err := (*eng).LoadMesh(args[0])
			if err != nil {
				return err
			}
			s, err := (*eng).BuildSkeleton(m, selected)
			if err != nil {
				return err
			}
			return emit(s)
		},
	}

	cmd.Flags().StringSliceVar(&regions, "regions", nil, "Regions to fit, in order (default: all)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the skeleton as TOML")
	cmd.Flags().StringVar(&previewPath, "preview", "", "Write a PNG preview of the bones")
	cmd.Flags().StringVar(&view, "view", "front", "Preview view: front, side or top")
	cmd.Flags().Float64Var(&yaw, "yaw", 0, "Turn the preview view by this many degrees")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild whenever the mesh or config changes")
	return cmd
}

func regionsCmd(eng **engine.Engine) *cobra.Command {
	var (
		prune bool
		fill  bool
		out   string
	)

	cmd := &cobra.Command{
		Use:   "regions <mesh>",
		Short: "List the regions of a mesh",
		Long:  "List regions in natural order with the number of vertices above the weight threshold.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (prune || fill) && out == "" {
				return fmt.Errorf("%w: --prune and --fill need --out", core.ErrMalformedInput)
			}
			m, err := (*eng).LoadMesh(args[0])
			if err != nil {
				return err
			}

			if prune {
				for _, name := range mesh.PruneUnusedGroups(m) {
					core.LogInfo("pruned unused region %q", name)
				}
			}
			if fill {
				for _, name := range mesh.FillNumericGaps(m) {
					core.LogInfo("added empty region %q", name)
				}
			}
			mesh.SortGroups(m)

			threshold := (*eng).Config().Rig.WeightThreshold
			unused := map[string]bool{}
			for _, name := range mesh.UnusedGroups(m) {
				unused[name] = true
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REGION\tPOINTS\tSTATUS")
			for _, name := range m.Regions() {
				ps, err := rig.ExtractRegion(m, name, math.NewMat4Identity(), threshold)
				if err != nil {
					return err
				}
				status := "ok"
				if unused[name] {
					status = "unused"
				} else if ps.IsEmpty() {
					status = "below threshold"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, ps.Len(), status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if out != "" {
				if err := loaders.SaveMesh(out, m); err != nil {
					return fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
				}
				core.LogInfo("mesh written to %s", out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Remove regions where no vertex has weight")
	cmd.Flags().BoolVar(&fill, "fill", false, "Add empty regions for missing numbers up to the largest numeric region")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the sorted mesh after --prune or --fill")
	cmd.MarkFlagsMutuallyExclusive("prune", "fill")
	return cmd
}

func matchCmd(eng **engine.Engine) *cobra.Command {
	var (
		out      string
		renumber bool
	)

	cmd := &cobra.Command{
		Use:   "match <dest> <source>",
		Short: "Rename the regions of dest after the nearest regions of source",
		Long: "Every region of dest takes the name of the source region whose weighted center\n" +
			"is nearest to its own. Regions that cannot be placed become \"unknown\".",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := (*eng).LoadMesh(args[0])
			if err != nil {
				return err
			}
			src, err := (*eng).LoadMesh(args[1])
			if err != nil {
				return err
			}

			renamed := mesh.MatchGroups(dest, src)
			if renumber {
				for old, name := range mesh.RenumberUnknown(dest) {
					for from, to := range renamed {
						if to == old {
							renamed[from] = name
						}
					}
				}
			}
			mesh.SortGroups(dest)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FROM\tTO")
			for _, from := range sortedKeys(renamed) {
				fmt.Fprintf(w, "%s\t%s\n", from, renamed[from])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if err := loaders.SaveMesh(out, dest); err != nil {
				return fmt.Errorf("%w: %w", core.ErrAssetLoad, err)
			}
			core.LogInfo("mesh written to %s", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the renamed dest mesh")
	cmd.Flags().BoolVar(&renumber, "renumber", false, "Give unmatched regions free numeric names")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func outputBones(w io.Writer, bones []rig.Bone, parents map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BONE\tHEAD\tTAIL\tLENGTH\tSHAPE\tPARENT")
	for _, b := range bones {
		parent := parents[b.Name]
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%s/%s\t%s\n",
			b.Name, formatVec(b.Head), formatVec(b.Tail), b.Length, b.Shape, b.Elongation, parent)
	}
	return tw.Flush()
}

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, mesh.NaturalCompare)
	return keys
}
