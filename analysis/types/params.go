package types

// Params defines the user-driven parameters of an analysis run. Empty
// ReferenceGene and ControlSample are resolved by the pipeline; empty Samples
// and Targets select everything observed.
type Params struct {
	ReferenceGene string   `json:"reference_gene" mapstructure:"reference_gene"`
	ControlSample string   `json:"control_sample" mapstructure:"control_sample"`
	Samples       []string `json:"samples,omitempty" mapstructure:"samples"`
	Targets       []string `json:"targets,omitempty" mapstructure:"targets"`
	ChartTarget   string   `json:"chart_target,omitempty" mapstructure:"chart_target"`
	Exclude       []int    `json:"exclude,omitempty" mapstructure:"exclude"`
}

// Clone returns a deep copy of the params.
func (p Params) Clone() Params {
	clone := p
	clone.Samples = append([]string(nil), p.Samples...)
	clone.Targets = append([]string(nil), p.Targets...)
	clone.Exclude = append([]int(nil), p.Exclude...)
	return clone
}
