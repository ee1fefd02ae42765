package commands

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"serialgen/internal/core/numerator"
)

// rulesFile is the document read by numctl apply.
//
//	rules:
//	  - prefix: ORDER
//	    format: "{prefix}-{SEQ}"
//	    seq_length: 6
//	    initial_seq: 456
type rulesFile struct {
	Rules []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Prefix     string `yaml:"prefix"`
	Format     string `yaml:"format"`
	SeqLength  int    `yaml:"seq_length"`
	InitialSeq uint64 `yaml:"initial_seq,omitempty"`
	Blocked    bool   `yaml:"blocked,omitempty"`
}

func (d ruleDoc) toRule() numerator.PrefixRule {
	return numerator.PrefixRule{
		PrefixKey:  d.Prefix,
		Format:     d.Format,
		SeqLength:  d.SeqLength,
		InitialSeq: d.InitialSeq,
		Blocked:    d.Blocked,
	}
}

func fromRule(r numerator.PrefixRule) ruleDoc {
	return ruleDoc{
		Prefix:     r.PrefixKey,
		Format:     r.Format,
		SeqLength:  r.SeqLength,
		InitialSeq: r.InitialSeq,
		Blocked:    r.Blocked,
	}
}

func readRulesFile(path string) (*rulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Rules))
	for i, r := range f.Rules {
		if r.Prefix == "" {
			return nil, fmt.Errorf("rules[%d]: prefix is required", i)
		}
		if seen[r.Prefix] {
			return nil, fmt.Errorf("rules[%d]: prefix %s listed twice", i, r.Prefix)
		}
		seen[r.Prefix] = true
	}
	return &f, nil
}
