package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/specialistvlad/layerstage/internal/asset"
)

// loadEnv returns the process environment layered over the variables of
// envFile. A missing envFile is not an error; the process always wins.
func loadEnv(envFile string) (map[string]string, error) {
	env := map[string]string{}
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env, nil
}

// withCredentials fills S3 credentials the manifest leaves empty. Secrets
// are never read from the manifest itself.
func withCredentials(src asset.SourceConfig, env map[string]string) asset.SourceConfig {
	if src.Type != asset.SourceS3 {
		return src
	}
	src.AccessKey = env[EnvS3AccessKey]
	src.SecretKey = env[EnvS3SecretKey]
	if src.Region == "" {
		src.Region = env[EnvS3Region]
	}
	if v, ok := env[EnvS3UseSSL]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			src.UseSSL = b
		}
	}
	return src
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
