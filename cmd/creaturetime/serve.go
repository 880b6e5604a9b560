package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/api"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/security"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		scenePath string
		addr      string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one scene document's validation session over HTTP",
		Long: `serve loads the document and exposes its rules, findings and repairs under
/api/v1. Mutating routes require "Authorization: Bearer <token>" when
serve.token_hash is configured; see "creaturetime token".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openJournal()
			if err != nil {
				return err
			}
			var journal validation.Journal
			srv := &api.Server{
				Logger:         a.log,
				AllowedOrigins: a.cfg.Serve.AllowedOrigins,
				TokenHash:      a.cfg.Serve.TokenHash,
			}
			if db != nil {
				defer db.Close()
				journal = db
				srv.Journal = db
			}

			sess, doc, err := a.openSession(scenePath, journal)
			if err != nil {
				return err
			}
			defer sess.Close()
			srv.Session = sess
			srv.Document = doc.Name
			srv.Save = func(sc scene.Accessor) error {
				d, ok := sc.(*scene.Document)
				if !ok {
					return fmt.Errorf("save: unexpected scene %T", sc)
				}
				return scene.Save(scenePath, d)
			}

			if err := sess.Validate(); err != nil {
				a.log.Error("initial validation failed", "err", err)
			}
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}
			if srv.TokenHash == "" {
				a.log.Warn("api auth disabled; set serve.token_hash to require a token")
			}
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&scenePath, "scene", "", "Scene document (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Generate an API token and the hash to put in serve.token_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := security.NewToken(32)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			hash, err := security.HashToken(tok)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			w := out(cmd)
			fmt.Fprintln(w, "token:", tok)
			fmt.Fprintln(w, "token_hash:", hash)
			return nil
		},
	}
}
