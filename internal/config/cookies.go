package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const (
	cookieFileName = "youtube_cookies.txt"
	localCookies   = "cookies.txt"
)

// PrepareCookies resolves the cookie file handed to the extractor.
// Contents from the environment win and are written once to a fixed path
// under the OS temp dir; otherwise a cookies.txt in workDir is used as is.
// An empty result means no cookies.
func PrepareCookies(contents, workDir string) (string, error) {
	if contents != "" {
		path := filepath.Join(os.TempDir(), cookieFileName)
		if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
			return "", fmt.Errorf("writing cookie file: %w", err)
		}
		log.Printf(">>> 🍪 Loaded cookies from environment into %s", path)
		return path, nil
	}

	local := filepath.Join(workDir, localCookies)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(local)
		if err != nil {
			return "", fmt.Errorf("resolving cookie file: %w", err)
		}
		log.Printf(">>> 🍪 Using local %s", localCookies)
		return abs, nil
	}

	log.Println(">>> ⚠️ No cookies file found. Login-required videos may fail.")
	return "", nil
}
