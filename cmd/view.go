package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuropathx/neuropathx/internal/ingest"
	"github.com/neuropathx/neuropathx/internal/render"
	"github.com/neuropathx/neuropathx/internal/session"
	"github.com/neuropathx/neuropathx/internal/viewport"
)

func newViewCmd(a *app) *cobra.Command {
	var events []string
	var output string
	var stats bool

	cmd := &cobra.Command{
		Use:   "view <image>",
		Short: "Replay viewer input on a scan and render the result",
		Long: `Loads a scan, applies a sequence of viewer input events in order and
prints the resulting viewport, CSS transform and filter. The adjusted image
can be written as a PNG and its intensity statistics printed.

Events are written as type[:key=value,...]. Types are wheel, pointerdown,
pointermove, pointerup, reset, dragstart and contextmenu. Keys are delta_y,
x, y and clicks; ctrl, shift and off_image are flags. Events land on the
image unless off_image is given.`,
		Example: `  # Zoom in 2x with a pinch, then raise brightness
  neuropathx view scan.png --event wheel:delta_y=-100,ctrl --event wheel:delta_y=40 -o out.png

  # Drag the image 30px right and print intensity statistics
  neuropathx view scan.png --event pointerdown:x=0,y=0 --event pointermove:x=30,y=0 --event pointerup --stats`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]viewport.Event, 0, len(events))
			for _, input := range events {
				ev, err := parseEvent(input)
				if err != nil {
					return err
				}
				parsed = append(parsed, ev)
			}

			raw, err := ingest.ReadFile(args[0])
			if err != nil {
				return err
			}
			sess := session.New("", session.Options{})
			if err := sess.Ingest(raw); err != nil {
				return fmt.Errorf("failed to load %s: %w", raw.Name, err)
			}
			sess.HandleInput(parsed...)
			snap := sess.Snapshot()

			out := struct {
				Viewport  viewport.Viewport `json:"viewport"`
				Transform string            `json:"transform"`
				Filter    string            `json:"filter"`
				Stats     *render.Stats     `json:"stats,omitempty"`
			}{
				Viewport:  snap.Viewport,
				Transform: snap.Transform,
				Filter:    snap.Filter,
			}

			if output != "" || stats {
				data, _ := sess.Image()
				img, err := render.Decode(data)
				if err != nil {
					return err
				}
				adjusted := render.Apply(img, snap.Viewport)
				if stats {
					s := render.Intensity(adjusted)
					out.Stats = &s
				}
				if output != "" {
					if err := writePNG(output, adjusted); err != nil {
						return err
					}
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringArrayVarP(&events, "event", "e", nil, "Input event, repeatable, applied in order")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the adjusted image to this PNG file")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print intensity statistics of the adjusted image")

	return cmd
}

// parseEvent reads type[:key=value,...] into a viewport event.
func parseEvent(input string) (viewport.Event, error) {
	name, params, _ := strings.Cut(input, ":")
	kind, err := viewport.ParseKind(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return viewport.Event{}, err
	}
	ev := viewport.Event{Kind: kind, OnImage: true}

	if params == "" {
		return ev, nil
	}
	for _, p := range strings.Split(params, ",") {
		key, value, hasValue := strings.Cut(strings.TrimSpace(p), "=")
		switch key {
		case "ctrl":
			ev.Ctrl = true
		case "shift":
			ev.Shift = true
		case "off_image":
			ev.OnImage = false
		case "delta_y", "x", "y":
			if !hasValue {
				return viewport.Event{}, fmt.Errorf("event %q: %s needs a value", input, key)
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return viewport.Event{}, fmt.Errorf("event %q: invalid %s: %w", input, key, err)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return viewport.Event{}, fmt.Errorf("event %q: %s must be a finite number", input, key)
			}
			switch key {
			case "delta_y":
				ev.DeltaY = f
			case "x":
				ev.X = f
			default:
				ev.Y = f
			}
		case "clicks":
			n, err := strconv.Atoi(value)
			if err != nil {
				return viewport.Event{}, fmt.Errorf("event %q: invalid clicks: %w", input, err)
			}
			ev.Clicks = n
		default:
			return viewport.Event{}, fmt.Errorf("event %q: unknown key %q", input, key)
		}
	}
	return ev, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := render.WritePNG(f, img); err != nil {
		return err
	}
	return f.Close()
}
