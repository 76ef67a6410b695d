// Command openapi-export writes the registered Swagger document as YAML and
// can fail the build when a previously published operation disappears.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "warbler/docs" // registers the swagger document

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

// document is the slice of a Swagger file the compatibility check reads.
type document struct {
	Paths map[string]map[string]struct {
		Responses map[string]yaml.Node `yaml:"responses"`
	} `yaml:"paths"`
}

func main() {
	out := flag.String("out", "", "write YAML here instead of stdout")
	base := flag.String("base", "", "previously published swagger.yaml to check against")
	flag.Parse()

	current, err := exportYAML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}

	if strings.TrimSpace(*base) != "" {
		// #nosec G304: path comes from a CLI flag in a dev tool
		raw, err := os.ReadFile(*base)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read base document: %v\n", err)
			os.Exit(1)
		}
		issues, err := removedOperations(raw, current)
		if err != nil {
			fmt.Fprintf(os.Stderr, "compatibility check failed: %v\n", err)
			os.Exit(1)
		}
		if len(issues) > 0 {
			fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "- %s\n", issue)
			}
			os.Exit(1)
		}
	}

	if *out == "" {
		_, _ = os.Stdout.Write(current)
		return
	}
	if err := os.WriteFile(*out, current, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
}

// exportYAML renders the registered swagger JSON as YAML.
func exportYAML() ([]byte, error) {
	raw, err := swag.ReadDoc()
	if err != nil {
		return nil, err
	}
	return jsonToYAML([]byte(raw))
}

func jsonToYAML(raw []byte) ([]byte, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse swagger json: %w", err)
	}
	return yaml.Marshal(doc)
}

// removedOperations lists paths, methods and response codes present in
// base but missing from revision.
func removedOperations(base, revision []byte) ([]string, error) {
	var b, r document
	if err := yaml.Unmarshal(base, &b); err != nil {
		return nil, fmt.Errorf("parse base: %w", err)
	}
	if err := yaml.Unmarshal(revision, &r); err != nil {
		return nil, fmt.Errorf("parse revision: %w", err)
	}

	var issues []string
	for path, ops := range b.Paths {
		revOps, ok := r.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, op := range ops {
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range op.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response: %s %s -> %s",
						strings.ToUpper(method), path, code))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues, nil
}
