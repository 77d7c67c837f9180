package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"warelay/internal/domain"
)

// seedFile is the YAML layout for preloading the knowledge base:
//
//	documents:
//	  - name: faq
//	    text: |
//	      ...
type seedFile struct {
	Documents []seedDocument `yaml:"documents"`
}

type seedDocument struct {
	Name     string            `yaml:"name"`
	Text     string            `yaml:"text"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// Seed loads documents from a YAML file into the retriever. Individual
// document failures are logged and skipped; only an unreadable or
// unparseable file is an error.
func Seed(ctx context.Context, r domain.Retriever, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read seed file %s: %w", path, err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("cannot parse seed file %s: %w", path, err)
	}

	added := 0
	for _, doc := range sf.Documents {
		meta := doc.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		if doc.Name != "" {
			meta["name"] = doc.Name
		}
		if _, err := r.Add(ctx, doc.Text, meta); err != nil {
			logger.Warn("seed document skipped", "name", doc.Name, "err", err)
			continue
		}
		added++
	}

	logger.Info("knowledge base seeded", "path", path, "documents", added)
	return nil
}
