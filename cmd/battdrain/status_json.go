package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

type statusJSON struct {
	Summary       string                `json:"summary"`
	Snapshot      *powerinfo.Snapshot   `json:"snapshot"`
	Configuration *config.RawFileConfig `json:"configuration,omitempty"`
}

func printStatusJSON(cmd *cobra.Command, snap *powerinfo.Snapshot, raw *config.RawFileConfig) error {
	out := statusJSON{
		Summary:       snap.Summary(noiseFloorOf(raw)),
		Snapshot:      snap,
		Configuration: raw,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
