// Command midibridge forwards MIDI control surface input (transport keys, foot
// switches) to a show server as control commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/TattooNOW/tattoonow-show/internal/control"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var server, showID, port string

	rootCmd := &cobra.Command{
		Use:           "midibridge",
		Short:         "Drive a show from a MIDI control surface",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showID == "" {
				return errors.New("--show is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, control.NewClient(server, showID), port)
		},
	}
	rootCmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Show server base URL")
	rootCmd.Flags().StringVar(&showID, "show", os.Getenv("CONTROL_SHOW_ID"), "Show id to control")
	rootCmd.Flags().StringVar(&port, "port", "x-touch", "Substring of the MIDI input port name")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ports",
		Short: "List MIDI input ports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer midi.CloseDriver()
			for _, p := range midi.GetInPorts() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", p)
			}
			return nil
		},
	})
	return rootCmd
}

func run(ctx context.Context, client *control.Client, portName string) error {
	defer midi.CloseDriver()

	in, err := control.FindInPort(portName)
	if err != nil {
		return err
	}

	mapping := control.DefaultMIDIMapping()
	requests := make(chan control.Request, 16)

	stopListening, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		req, ok := mapping.Translate(msg)
		if !ok {
			return
		}
		select {
		case requests <- req:
		default:
			log.Printf("Dropping %s, server is not keeping up", req.Command)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", in, err)
	}
	defer stopListening()

	log.Printf("Listening on %s, forwarding to show %s at %s", in, client.ShowID, client.BaseURL)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-requests:
			res, err := client.Send(ctx, req)
			if err != nil {
				log.Printf("Command %s failed: %v", req.Command, err)
				continue
			}
			log.Printf("Command %s sent (changed=%v)", res.Command, res.Changed)
		}
	}
}
