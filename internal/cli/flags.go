package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/backcheck/internal/model"
)

// engineFlagKeys maps engine flags shared by evaluate, check and index to
// their config keys
var engineFlagKeys = map[string]string{
	"llm-provider":       "llm.provider",
	"llm-model":          "llm.model",
	"embedding-provider": "embedding.provider",
	"character-filter":   "retrieval.character_filter",
	"judge-mode":         "judge.mode",
	"chunk-size":         "chunking.size_words",
	"chunk-overlap":      "chunking.overlap_words",
	"top-k":              "retrieval.top_k",
}

func addEngineFlags(cmd *cobra.Command) {
	d := model.DefaultConfig()
	f := cmd.Flags()
	f.String("llm-provider", d.LLM.Provider, "completion provider (openai, anthropic, ollama); empty for heuristic only")
	f.String("llm-model", d.LLM.Model, "completion model name")
	f.String("embedding-provider", d.Embedding.Provider, "embedding provider (hash, openai, ollama)")
	f.String("character-filter", string(d.Retrieval.CharacterFilter), "evidence filter for the named character (strict, boost, off)")
	f.String("judge-mode", d.Judge.Mode, "judge path (auto, llm, heuristic)")
	f.Int("chunk-size", d.Chunking.SizeWords, "chunk size in words")
	f.Int("chunk-overlap", d.Chunking.OverlapWords, "chunk overlap in words")
	f.Int("top-k", d.Retrieval.TopK, "evidence items kept per case")
}

// engineConfig binds the shared engine flags plus extra, then loads config
func engineConfig(cmd *cobra.Command, extra map[string]string) (model.Config, error) {
	keys := make(map[string]string, len(engineFlagKeys)+len(extra))
	for k, v := range engineFlagKeys {
		keys[k] = v
	}
	for k, v := range extra {
		keys[k] = v
	}
	v := viper.GetViper()
	if err := bindFlags(v, cmd.Flags(), keys); err != nil {
		return model.Config{}, err
	}
	return loadConfig(v)
}
