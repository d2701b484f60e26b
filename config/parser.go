package config

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-travel/types"
)

// Parser gives dotted-path access ("providers.news.timeout") to the
// effective configuration, defaults included.
type Parser struct {
	data map[string]interface{}
}

func NewParser(config *types.ServiceConfig) *Parser {
	parser := &Parser{
		data: make(map[string]interface{}),
	}

	configBytes, err := yaml.Marshal(config)
	if err != nil {
		return parser
	}

	if err := yaml.Unmarshal(configBytes, &parser.data); err != nil {
		parser.data = make(map[string]interface{})
	}

	return parser
}

func (p *Parser) GetValue(path string, defaultValue interface{}) interface{} {
	value := p.navigateToPath(path)
	if value == nil {
		return defaultValue
	}
	return value
}

func (p *Parser) GetAs(path string, target interface{}) error {
	value := p.navigateToPath(path)
	if value == nil {
		return types.Errorf(types.ErrConfigNotFound, "path: %s", path)
	}

	valueBytes, err := yaml.Marshal(value)
	if err != nil {
		return types.WrapError(err, "failed to marshal config value")
	}

	if err = yaml.Unmarshal(valueBytes, target); err != nil {
		return types.WrapError(err, "failed to unmarshal config value")
	}

	return nil
}

// GetAllPaths lists every leaf path, sorted.
func (p *Parser) GetAllPaths() []string {
	var paths []string
	collectPaths(p.data, "", &paths)
	sort.Strings(paths)
	return paths
}

func collectPaths(node interface{}, prefix string, paths *[]string) {
	m, ok := node.(map[string]interface{})
	if !ok || len(m) == 0 {
		if prefix != "" {
			*paths = append(*paths, prefix)
		}
		return
	}

	for key, value := range m {
		next := key
		if prefix != "" {
			next = prefix + "." + key
		}
		collectPaths(value, next, paths)
	}
}

func (p *Parser) navigateToPath(path string) interface{} {
	if path == "" {
		return p.data
	}

	var current interface{} = p.data

	for _, part := range strings.Split(path, ".") {
		v, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}

		val, exists := v[part]
		if !exists || val == nil {
			return nil
		}
		current = val
	}

	return current
}
