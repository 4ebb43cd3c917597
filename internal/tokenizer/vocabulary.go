package tokenizer

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// UseVocabularyDir makes encodings load their BPE rank files from dir when a
// file with the published name (for example cl100k_base.tiktoken) is there,
// and download them otherwise. tiktoken keeps loaded encodings for the life
// of the process, so this must run before the first New for an encoding.
func UseVocabularyDir(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		tiktoken.SetBpeLoader(tiktoken.NewDefaultBpeLoader())
		return
	}
	tiktoken.SetBpeLoader(vocabularyLoader{dir: dir, fallback: tiktoken.NewDefaultBpeLoader()})
}

type vocabularyLoader struct {
	dir      string
	fallback tiktoken.BpeLoader
}

func (l vocabularyLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	local := filepath.Join(l.dir, path.Base(file))
	if _, err := os.Stat(local); err == nil {
		return l.fallback.LoadTiktokenBpe(local)
	}
	return l.fallback.LoadTiktokenBpe(file)
}
