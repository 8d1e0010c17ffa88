package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/suaiden-dev/matriculausa-rewards/internal/models"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/auth"
)

const SecretKeyBytesLen = 32

// Prints a fresh secret key
// With --token prints an access token signed with --secret-key, handy for local runs
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)

	token := fs.BoolP("token", "t", false, "Print access token instead of secret key")
	secretKey := fs.StringP("secret-key", "s", os.Getenv("SECRET_KEY"), "Secret key to sign token with")
	role := fs.StringP("role", "r", string(models.RoleStudent), "Actor role (student, university, admin)")
	userID := fs.StringP("user", "u", "", "Actor user id, random when empty")
	universityID := fs.String("university", "", "University id for university staff")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*token {
		key, err := generateSecretKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	}

	actor, err := parseActor(*role, *userID, *universityID)
	if err != nil {
		return err
	}

	tm, err := auth.New(auth.Config{SecretKey: *secretKey, AccessTTL: *ttl})
	if err != nil {
		return err
	}

	access, _, err := tm.Issue(actor)
	if err != nil {
		return err
	}

	fmt.Println(access)
	return nil
}

func generateSecretKey() (string, error) {
	b := make([]byte, SecretKeyBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("error while generating secret key: %w", err)
	}

	return hex.EncodeToString(b), nil
}

func parseActor(role, userID, universityID string) (models.Actor, error) {
	actor := models.Actor{ID: uuid.New(), Role: models.Role(role)}

	if userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return actor, fmt.Errorf("invalid user id: %w", err)
		}
		actor.ID = id
	}

	if universityID != "" {
		id, err := uuid.Parse(universityID)
		if err != nil {
			return actor, fmt.Errorf("invalid university id: %w", err)
		}
		actor.UniversityID = &id
	}

	return actor, nil
}
