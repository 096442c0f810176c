package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"ballot-backend/models"
	"ballot-backend/registry"
)

type genesisFile struct {
	Administrators []string `yaml:"administrators"`
	BoardMembers   []string `yaml:"board_members"`
	Voters         []string `yaml:"voters"`
}

// LoadGenesis reads the initial role sets from a YAML file.
func LoadGenesis(path string) (models.Genesis, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return models.Genesis{}, errors.Wrap(err, "failed to read genesis file")
	}
	return ParseGenesis(b)
}

func ParseGenesis(b []byte) (models.Genesis, error) {
	var f genesisFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return models.Genesis{}, errors.Wrap(err, "failed to parse genesis")
	}

	var g models.Genesis
	for _, set := range []struct {
		name string
		in   []string
		out  *[]models.Identity
	}{
		{"administrators", f.Administrators, &g.Administrators},
		{"board_members", f.BoardMembers, &g.BoardMembers},
		{"voters", f.Voters, &g.Voters},
	} {
		ids, err := models.ParseIdentities(set.in)
		if err != nil {
			return models.Genesis{}, errors.Wrapf(err, "invalid %s", set.name)
		}
		*set.out = ids
	}

	if err := registry.ValidateGenesis(g); err != nil {
		return models.Genesis{}, err
	}

	return g, nil
}

func MarshalGenesis(g models.Genesis) ([]byte, error) {
	f := genesisFile{
		Administrators: hexes(g.Administrators),
		BoardMembers:   hexes(g.BoardMembers),
		Voters:         hexes(g.Voters),
	}

	b, err := yaml.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal genesis")
	}
	return b, nil
}

func hexes(ids []models.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
