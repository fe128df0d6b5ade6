package manifest

import (
	"fmt"
	"strings"

	"github.com/viant/spawnly/internal/yml"
	"github.com/viant/spawnly/manifest/cmdline"
	"github.com/viant/spawnly/policy"
	"gopkg.in/yaml.v3"
)

// Task describes a single launch within a manifest
type Task struct {
	// Name identifies the task; generated from its position when omitted
	Name string

	// Command holds the executable and its arguments
	Command []string

	// Line preserves the raw command string when the manifest used the
	// string form; session tasks are executed from it verbatim
	Line string

	// Env entries override manifest-wide entries, which in turn override the
	// parent environment
	Env map[string]string

	// Dir is the task working directory
	Dir string

	// Isolated places the child in its own process group
	Isolated bool

	// Session runs the command inside the runner's shared shell session
	// instead of a dedicated child process
	Session bool

	// ContinueOnError lets the run proceed past a non-zero exit
	ContinueOnError bool
}

// Manifest is an ordered set of tasks executed front to back
type Manifest struct {
	Name   string
	Source string
	Env    map[string]string

	// Policy, when present, restricts what the tasks may launch
	Policy *policy.Config

	Tasks []*Task
}

// Validate reports the first structural problem with the manifest
func (m *Manifest) Validate() error {
	if len(m.Tasks) == 0 {
		return fmt.Errorf("manifest %q has no tasks", m.Name)
	}
	seen := make(map[string]bool)
	for _, task := range m.Tasks {
		if len(task.Command) == 0 {
			return fmt.Errorf("task %q has no command", task.Name)
		}
		if task.Session && task.Line == "" {
			return fmt.Errorf("session task %q requires a command string", task.Name)
		}
		if seen[task.Name] {
			return fmt.Errorf("duplicate task name %q", task.Name)
		}
		seen[task.Name] = true
	}
	return nil
}

// parseManifest converts a YAML node into the manifest model
func parseManifest(node *yml.Node) (*Manifest, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("manifest should be a mapping")
	}
	m := &Manifest{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			if valueNode.Kind == yaml.ScalarNode {
				m.Name = valueNode.Value
			}
		case "env":
			env, err := parseEnv(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse manifest env: %w", err)
			}
			m.Env = env
		case "policy":
			config, err := parsePolicy(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse manifest policy: %w", err)
			}
			m.Policy = config
		case "tasks":
			if valueNode.Kind != yaml.SequenceNode {
				return fmt.Errorf("tasks should be a sequence")
			}
			return valueNode.Items(func(index int, taskNode *yml.Node) error {
				task, err := parseTask(index, taskNode)
				if err != nil {
					return err
				}
				m.Tasks = append(m.Tasks, task)
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// parseTask converts a YAML node to a manifest task
func parseTask(index int, node *yml.Node) (*Task, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("task %d should be a mapping", index+1)
	}
	task := &Task{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			if valueNode.Kind == yaml.ScalarNode {
				task.Name = valueNode.Value
			}
		case "command":
			switch valueNode.Kind {
			case yaml.ScalarNode:
				task.Line = valueNode.Value
				fields, err := cmdline.Split(valueNode.Value)
				if err != nil {
					return fmt.Errorf("failed to parse command of task %d: %w", index+1, err)
				}
				task.Command = fields
			case yaml.SequenceNode:
				return valueNode.Items(func(_ int, item *yml.Node) error {
					if item.Kind != yaml.ScalarNode {
						return fmt.Errorf("command items of task %d should be scalars", index+1)
					}
					task.Command = append(task.Command, item.Value)
					return nil
				})
			default:
				return fmt.Errorf("command of task %d should be a string or a sequence", index+1)
			}
		case "env":
			env, err := parseEnv(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse env of task %d: %w", index+1, err)
			}
			task.Env = env
		case "dir":
			if valueNode.Kind == yaml.ScalarNode {
				task.Dir = valueNode.Value
			}
		case "isolated":
			flag, ok := valueNode.Interface().(bool)
			if !ok {
				return fmt.Errorf("isolated should be a boolean")
			}
			task.Isolated = flag
		case "session":
			flag, ok := valueNode.Interface().(bool)
			if !ok {
				return fmt.Errorf("session should be a boolean")
			}
			task.Session = flag
		case "continueonerror":
			flag, ok := valueNode.Interface().(bool)
			if !ok {
				return fmt.Errorf("continueOnError should be a boolean")
			}
			task.ContinueOnError = flag
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if task.Name == "" {
		task.Name = fmt.Sprintf("task-%d", index+1)
	}
	return task, nil
}

// parsePolicy converts a mapping node into launch restrictions
func parsePolicy(node *yml.Node) (*policy.Config, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("policy should be a mapping")
	}
	config := &policy.Config{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "mode":
			if valueNode.Kind != yaml.ScalarNode {
				return fmt.Errorf("policy mode should be a scalar")
			}
			config.Mode = valueNode.Value
		case "allow":
			entries, err := parseStrings(valueNode)
			if err != nil {
				return fmt.Errorf("policy allow list: %w", err)
			}
			config.AllowList = entries
		case "block":
			entries, err := parseStrings(valueNode)
			if err != nil {
				return fmt.Errorf("policy block list: %w", err)
			}
			config.BlockList = entries
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return config, nil
}

// parseStrings converts a sequence of scalars into a string slice
func parseStrings(node *yml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("should be a sequence")
	}
	var entries []string
	err := node.Items(func(_ int, item *yml.Node) error {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("entries should be scalars")
		}
		entries = append(entries, item.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// parseEnv converts a mapping node into environment overrides
func parseEnv(node *yml.Node) (map[string]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("env should be a mapping")
	}
	env := make(map[string]string)
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		if valueNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("env entry %s should be a scalar", key)
		}
		env[key] = valueNode.Value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}
