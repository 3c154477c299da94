package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/pipeline"
	"github.com/sentiml/sentiml/smoketest"
)

func main() {
	var confPath string

	root := &cobra.Command{
		Use:          "sentiml",
		Short:        "sentiment classification pipeline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&confPath, "config", "c", "sentiml.yaml", "pipeline config file")

	loadConf := func() (config.Config, error) {
		return config.Load(confPath)
	}

	p := pipeline.Sentiment()
	for _, s := range p.Stages {
		s := s
		root.AddCommand(&cobra.Command{
			Use:   s.Name,
			Short: "run the " + s.Name + " stage",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				conf, err := loadConf()
				if err != nil {
					return err
				}
				return p.RunStage(s.Name, conf)
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "run the full pipeline end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConf()
			if err != nil {
				return err
			}
			return p.Run(conf)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "score [text]...",
		Short: "score texts against the latest served model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConf()
			if err != nil {
				return err
			}
			return smoketest.Run(conf, args)
		},
	})

	if err := root.Execute(); err != nil {
		logging.Sugar.Error(err)
		os.Exit(1)
	}
}
