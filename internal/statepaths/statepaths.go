package statepaths

import (
	"strings"

	"github.com/quailyquaily/tether/internal/pathutil"
	"github.com/spf13/viper"
)

func FileStateDir() string {
	return pathutil.ResolveStateDir(viper.GetString("file_state_dir"))
}

func BridgeDir() string {
	return pathutil.ResolveStateChildDir(
		viper.GetString("file_state_dir"),
		viper.GetString("bridge.dir_name"),
		"bridge",
	)
}

// ThreadNamesPath is the per-platform session-to-thread-name mapping file,
// e.g. bridge/slack_threads.json.
func ThreadNamesPath(platform string) string {
	return pathutil.ResolveStateFile(BridgeDir(), normalizePlatform(platform)+"_threads.json")
}

// PairingStatePath is the per-platform pairing/allowlist state file.
func PairingStatePath(platform string) string {
	return pathutil.ResolveStateFile(BridgeDir(), normalizePlatform(platform)+"_pairing.json")
}

func normalizePlatform(platform string) string {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		return "default"
	}
	return platform
}
