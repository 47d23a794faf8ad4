// Package auth manages the OpenRouter API key: OS keychain first, optional
// environment fallback.
package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	serviceName       = "litrans"
	openRouterAccount = "openrouter-api-key"
	openRouterEnvVar  = "OPENROUTER_API_KEY"
)

// GetKey retrieves the OpenRouter key and where it was found. Environment
// variables are only consulted when allowEnv is set.
func GetKey(allowEnv bool) (string, string) {
	key, err := keyring.Get(serviceName, openRouterAccount)
	if err == nil && key != "" {
		return strings.TrimSpace(key), "Keychain"
	}
	if allowEnv {
		if key := os.Getenv(openRouterEnvVar); key != "" {
			return strings.TrimSpace(key), "Environment Variable"
		}
	}
	return "", ""
}

// SaveKey stores the key in the OS keychain.
func SaveKey(key string) error {
	return keyring.Set(serviceName, openRouterAccount, strings.TrimSpace(key))
}

// DeleteKey removes the key from the OS keychain.
func DeleteKey() error {
	return keyring.Delete(serviceName, openRouterAccount)
}

// GetStatus reports whether a key is stored in the keychain.
func GetStatus() bool {
	key, err := keyring.Get(serviceName, openRouterAccount)
	return err == nil && key != ""
}

// GetEnvKey retrieves the key from the environment only.
func GetEnvKey() (string, bool) {
	key := strings.TrimSpace(os.Getenv(openRouterEnvVar))
	if key == "" {
		return "", false
	}
	return key, true
}

// PromptForAPIKey reads the key from the terminal without echoing it.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Print(prompt)
	byteKey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(byteKey)), nil
}
