package compose

// =============================================================================
// Manifest - Main Output Type
// =============================================================================

// Manifest is the part of a stack manifest the sequencer inspects before
// handing the file to the runtime.
type Manifest struct {
	Name             string   `json:"name"`
	Services         []string `json:"services"`
	Images           []string `json:"images"`
	ExternalNetworks []string `json:"external_networks,omitempty"`
	ExternalVolumes  []string `json:"external_volumes,omitempty"`
	Variables        []string `json:"variables,omitempty"` // placeholders without a default
}
