package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/council/config"
	"github.com/mohammad-safakhou/council/internal/council"
	"github.com/mohammad-safakhou/council/internal/provider"
)

func askCMD() *cobra.Command {
	var cfgPath string
	var members []string
	var chairman string
	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Run a council debate from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			gateway := provider.NewGatewayClient(cfg.Gateway)

			logger := log.New(os.Stderr, "[ASK] ", log.LstdFlags)
			engine := council.NewEngine(gateway, discardSink{}, logger, nil, council.Options{
				EventBuffer:          cfg.Council.EventBuffer,
				SynthesisTemperature: cfg.Gateway.SynthesisTemperature,
				Parser: council.ParserConfig{
					ConsensusMarker: cfg.Council.ConsensusMarker,
					DebatesMarker:   cfg.Council.DebatesMarker,
					SynthesisMarker: cfg.Council.SynthesisMarker,
					BulletPrefixes:  cfg.Council.BulletPrefixes,
				},
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := engine.RunDebate(ctx, council.DebateRequest{
				Query:          strings.Join(args, " "),
				CouncilMembers: members,
				Chairman:       chairman,
			})
			if err != nil {
				return err
			}
			return printDebate(events)
		},
	}
	ask.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	ask.Flags().StringSliceVarP(&members, "member", "m", nil, "council member model id (repeatable)")
	ask.Flags().StringVar(&chairman, "chairman", "", "chairman model id")

	return ask
}

// printDebate renders the event stream: member answers as they arrive, one
// section per member, then the chairman synthesis.
func printDebate(events <-chan council.Event) error {
	current := ""
	for ev := range events {
		switch ev := ev.(type) {
		case council.ModelChunk:
			if ev.ModelID != current {
				if current != "" {
					fmt.Println()
				}
				fmt.Printf("\n=== %s ===\n", ev.ModelID)
				current = ev.ModelID
			}
			fmt.Print(ev.Chunk)
		case council.ModelComplete:
			fmt.Fprintf(os.Stderr, "\n[%s done: %d tokens in %.1fs]\n", ev.ModelID, ev.Tokens, ev.ResponseTime)
		case council.ModelError:
			fmt.Fprintf(os.Stderr, "\n[%s failed: %s]\n", ev.ModelID, ev.Error)
		case council.SynthesisStart:
			fmt.Printf("\n\n=== synthesis ===\n")
			current = ""
		case council.SynthesisComplete:
			printSynthesis(ev)
		case council.SynthesisError:
			fmt.Fprintf(os.Stderr, "[synthesis: %s]\n", ev.Error)
		case council.FatalError:
			return fmt.Errorf("debate aborted: %s", ev.Message)
		}
	}
	return nil
}

func printSynthesis(ev council.SynthesisComplete) {
	if len(ev.ConsensusItems) > 0 {
		fmt.Println("Consensus:")
		for _, item := range ev.ConsensusItems {
			fmt.Printf("  - %s\n", item)
		}
	}
	if len(ev.Debates) > 0 {
		fmt.Println("Open debates:")
		for _, d := range ev.Debates {
			fmt.Printf("  - %s: %s\n", d.Topic, d.Positions)
		}
	}
	if ev.SynthesisText != "" {
		fmt.Println(ev.SynthesisText)
	}
}

// discardSink keeps terminal runs out of the database; ask is for trying
// models, not for building history.
type discardSink struct{}

func (discardSink) CreateDebate(context.Context, string, string) (string, error) {
	return uuid.NewString(), nil
}

func (discardSink) RecordResponse(context.Context, string, string, string, int, time.Duration, council.Status) error {
	return nil
}

func (discardSink) RecordSynthesis(context.Context, string, council.Synthesis) error {
	return nil
}
