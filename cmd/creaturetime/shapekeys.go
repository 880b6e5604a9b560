package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/shapekeys"
)

// meshTarget is the --scene/--object/--dry-run trio of the mesh tools.
type meshTarget struct {
	scene  string
	object string
	dryRun bool
}

func (t *meshTarget) bind(cmd *cobra.Command, readOnly bool) {
	cmd.Flags().StringVar(&t.scene, "scene", "", "Scene document (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&t.object, "object", "", "Mesh object name")
	if !readOnly {
		cmd.Flags().BoolVar(&t.dryRun, "dry-run", false, "Do not save the document")
	}
}

func (t *meshTarget) load() (*scene.Document, error) {
	if t.scene == "" || t.object == "" {
		return nil, errors.New("--scene and --object are required")
	}
	return scene.Load(t.scene)
}

func (t *meshTarget) save(cmd *cobra.Command, doc *scene.Document) error {
	if t.dryRun {
		fmt.Fprintln(out(cmd), "Dry run: document not saved")
		return nil
	}
	return scene.Save(t.scene, doc)
}

func newShapeKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shapekeys",
		Short: "Shape key maintenance",
	}
	cmd.AddCommand(
		newShapeKeysSortCmd(a),
		newShapeKeysPruneCmd(a),
		newShapeKeysApplyBasisCmd(a),
		newShapeKeysAffectedCmd(a),
	)
	return cmd
}

func newShapeKeysSortCmd(a *app) *cobra.Command {
	var (
		t     meshTarget
		extra []string
	)
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Reorder shape keys into the canonical viseme order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := t.load()
			if err != nil {
				return err
			}
			if len(extra) == 0 {
				extra = a.cfg.ShapeKeys.ExtraOrder
			}
			if err := shapekeys.Sort(doc, t.object, extra); err != nil {
				return err
			}
			m, _ := doc.Mesh(t.object)
			names := make([]string, len(m.ShapeKeys))
			for i, k := range m.ShapeKeys {
				names[i] = k.Name
			}
			fmt.Fprintln(out(cmd), strings.Join(names, "\n"))
			return t.save(cmd, doc)
		},
	}
	t.bind(cmd, false)
	cmd.Flags().StringSliceVar(&extra, "order", nil, "Extra key names to place after the canonical ones")
	return cmd
}

func newShapeKeysPruneCmd(a *app) *cobra.Command {
	var (
		t   meshTarget
		tol float64
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove shape keys that do not move any vertex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := t.load()
			if err != nil {
				return err
			}
			if tol <= 0 {
				tol = a.cfg.ShapeKeys.PruneTolerance
			}
			removed, err := shapekeys.RemoveUnused(doc, t.object, tol)
			if err != nil {
				return err
			}
			a.log.Info("pruned shape keys", "object", t.object, "removed", len(removed))
			printRemoved(cmd, "shape keys", removed)
			return t.save(cmd, doc)
		},
	}
	t.bind(cmd, false)
	cmd.Flags().Float64Var(&tol, "tolerance", 0, "Per-coordinate tolerance (default from config)")
	return cmd
}

func newShapeKeysApplyBasisCmd(a *app) *cobra.Command {
	var (
		t   meshTarget
		key string
	)
	cmd := &cobra.Command{
		Use:   "apply-basis",
		Short: "Bake a shape key into the basis, keeping the old basis as a reverted key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := t.load()
			if err != nil {
				return err
			}
			res, err := shapekeys.ApplyAsBasis(doc, t.object, key)
			if err != nil {
				return err
			}
			if res.Restored {
				fmt.Fprintf(out(cmd), "Reverted: basis restored, %q is back\n", res.Reverted)
			} else {
				fmt.Fprintf(out(cmd), "Applied %q as basis; old basis kept as %q\n", res.Applied, res.Reverted)
			}
			a.log.Info("applied shape key as basis", "object", t.object, "key", key, "restored", res.Restored)
			return t.save(cmd, doc)
		},
	}
	t.bind(cmd, false)
	cmd.Flags().StringVar(&key, "key", "", "Shape key to apply")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newShapeKeysAffectedCmd(a *app) *cobra.Command {
	var (
		t   meshTarget
		key string
		tol float64
	)
	cmd := &cobra.Command{
		Use:   "affected",
		Short: "List the vertices a shape key moves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := t.load()
			if err != nil {
				return err
			}
			if tol <= 0 {
				tol = a.cfg.ShapeKeys.AffectedTolerance
			}
			idx, err := shapekeys.AffectedVertices(doc, t.object, key, tol)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%d vertices affected by %q\n", len(idx), key)
			for _, i := range idx {
				fmt.Fprintln(out(cmd), i)
			}
			return nil
		},
	}
	t.bind(cmd, true)
	cmd.Flags().StringVar(&key, "key", "", "Shape key to inspect")
	cmd.Flags().Float64Var(&tol, "tolerance", 0, "Displacement tolerance (default from config)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVertexGroupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vgroups",
		Aliases: []string{"vertex-groups"},
		Short:   "Vertex group maintenance",
	}
	var t meshTarget
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove vertex groups no vertex is weighted to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := t.load()
			if err != nil {
				return err
			}
			removed, err := shapekeys.RemoveUnusedVertexGroups(doc, t.object)
			if err != nil {
				return err
			}
			a.log.Info("pruned vertex groups", "object", t.object, "removed", len(removed))
			printRemoved(cmd, "vertex groups", removed)
			return t.save(cmd, doc)
		},
	}
	t.bind(prune, false)
	cmd.AddCommand(prune)
	return cmd
}

func printRemoved(cmd *cobra.Command, what string, names []string) {
	fmt.Fprintf(out(cmd), "Removed %d %s\n", len(names), what)
	for _, n := range names {
		fmt.Fprintf(out(cmd), "  %s\n", n)
	}
}
