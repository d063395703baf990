package model

// ExportDocument is the import/export file format. Export serializes current
// in-memory state verbatim; import replaces wholesale the registries whose
// keys are present and leaves the rest untouched.
type ExportDocument struct {
	Tracks     []Track          `json:"tracks"`
	Groups     []VolumeGroup    `json:"groups"`
	Initiative *InitiativeState `json:"initiative,omitempty"`
	Enemies    []Enemy          `json:"enemies,omitempty"`
}
