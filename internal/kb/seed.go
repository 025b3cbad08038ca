package kb

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/medassist/orchestrator/internal/domain"
	"github.com/medassist/orchestrator/internal/store"
)

// Seed is the YAML document describing the knowledge base.
type Seed struct {
	Symptoms []SeedSymptom `yaml:"symptoms"`
	Diseases []SeedDisease `yaml:"diseases"`
}

// SeedSymptom describes one symptom entry.
type SeedSymptom struct {
	ID            string `yaml:"id"`
	NameEN        string `yaml:"name_en"`
	NameVN        string `yaml:"name_vn"`
	DescriptionEN string `yaml:"des_en"`
	DescriptionVN string `yaml:"des_vn"`
	Synonym       string `yaml:"synonym"`
	Frequency     string `yaml:"frequency"`
}

// SeedDisease describes one disease entry and its symptom edges.
type SeedDisease struct {
	ID             string     `yaml:"id"`
	NameEN         string     `yaml:"name_en"`
	NameVN         string     `yaml:"name_vn"`
	DescriptionEN  string     `yaml:"des_en"`
	DescriptionVN  string     `yaml:"des_vn"`
	Severity       string     `yaml:"severity"`
	Specialization string     `yaml:"specialization"`
	Symptoms       []SeedEdge `yaml:"symptoms"`
}

// SeedEdge links a disease to a symptom with an association weight.
type SeedEdge struct {
	ID     string `yaml:"id"`
	Weight int    `yaml:"weight"`
}

// LoadSeed reads and parses a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses a YAML seed document.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

// Apply upserts the seed into the store.
func (s *Seed) Apply(ctx context.Context, st store.Store) error {
	for _, sym := range s.Symptoms {
		err := st.UpsertSymptom(ctx, &domain.Symptom{
			SymptomID:     sym.ID,
			NameEN:        sym.NameEN,
			NameVN:        sym.NameVN,
			DescriptionEN: sym.DescriptionEN,
			DescriptionVN: sym.DescriptionVN,
			Synonym:       sym.Synonym,
			Frequency:     domain.Frequency(sym.Frequency),
		})
		if err != nil {
			return err
		}
	}
	for _, dis := range s.Diseases {
		err := st.UpsertDisease(ctx, &domain.Disease{
			DiseaseID:      dis.ID,
			NameEN:         dis.NameEN,
			NameVN:         dis.NameVN,
			DescriptionEN:  dis.DescriptionEN,
			DescriptionVN:  dis.DescriptionVN,
			Severity:       domain.Severity(dis.Severity),
			Specialization: dis.Specialization,
		})
		if err != nil {
			return err
		}
		for _, edge := range dis.Symptoms {
			err := st.UpsertDiseaseSymptom(ctx, &domain.DiseaseSymptom{
				DiseaseID: dis.ID,
				SymptomID: edge.ID,
				Weight:    edge.Weight,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
