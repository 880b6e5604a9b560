package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		scenePath string
		sel       selection
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-validate a scene document every time it is saved",
		Long: `watch validates the document once, then again after every save. Each load
resets the rule selection to the --disable/--rule flags given here, in the
same way reopening a document resets it in the editor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, _, err := a.openSession(scenePath, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			w := out(cmd)
			validate := func() {
				if err := sel.run(sess); err != nil {
					a.log.Error("validation failed", "err", err)
				}
				printFindings(w, sess.Registry().Findings())
			}
			validate()

			onLoad := func(doc *scene.Document) {
				sess.Load(doc)
				fmt.Fprintf(w, "\nReloaded %s\n", doc.Name)
				validate()
			}
			onError := func(err error) {
				a.log.Warn("reload failed", "scene", scenePath, "err", err)
			}
			a.log.Info("watching", "scene", scenePath, "debounce", a.cfg.Watch.Debounce)
			return scene.Watch(cmd.Context(), scenePath, a.cfg.Watch.Debounce, onLoad, onError)
		},
	}
	cmd.Flags().StringVar(&scenePath, "scene", "", "Scene document (.yaml, .yml or .json)")
	sel.bind(cmd)
	return cmd
}
