package dto

import (
	"serialgen/internal/core/numerator"
)

// PrefixConfigRequest registers a prefix rule.
// Field checks beyond presence are done by the domain.
type PrefixConfigRequest struct {
	Format     string `json:"format" binding:"required"`
	SeqLength  int    `json:"seqLength" binding:"required"`
	InitialSeq uint64 `json:"initialSeq"`
	Blocked    bool   `json:"blocked"`
}

// ToRule converts the request for prefix.
func (r PrefixConfigRequest) ToRule(prefix string) numerator.PrefixRule {
	return numerator.PrefixRule{
		PrefixKey:  prefix,
		Format:     r.Format,
		SeqLength:  r.SeqLength,
		InitialSeq: r.InitialSeq,
		Blocked:    r.Blocked,
	}
}

// PrefixConfigResponse is a registered rule.
type PrefixConfigResponse struct {
	PrefixKey  string `json:"prefixKey"`
	Format     string `json:"format"`
	SeqLength  int    `json:"seqLength"`
	InitialSeq uint64 `json:"initialSeq"`
	Blocked    bool   `json:"blocked"`
}

// FromPrefixRule converts a domain rule.
func FromPrefixRule(rule *numerator.PrefixRule) PrefixConfigResponse {
	return PrefixConfigResponse{
		PrefixKey:  rule.PrefixKey,
		Format:     rule.Format,
		SeqLength:  rule.SeqLength,
		InitialSeq: rule.InitialSeq,
		Blocked:    rule.Blocked,
	}
}
