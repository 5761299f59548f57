package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/packway/keybackend"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd [username]",
	Short: "Hash a password for basic authentication",
	Long: `Prompt for a password and print an argon2id hash for it.

The output can be pasted into auth.credentials.inline or a credentials file.

Examples:
  packway passwd
  packway passwd alice`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPasswd,
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}

func runPasswd(_ *cobra.Command, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		usernamePrompt := promptui.Prompt{
			Label: "Username",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("username is required")
				}
				return nil
			},
		}
		value, err := usernamePrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}
		username = value
	}

	passwordPrompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < 8 {
				return errors.New("password must be at least 8 characters")
			}
			return nil
		},
	}
	password, err := passwordPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	confirmPrompt := promptui.Prompt{
		Label: "Confirm password",
		Mask:  '*',
	}
	confirm, err := confirmPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	if confirm != password {
		return errors.New("passwords do not match")
	}

	hash, err := keybackend.HashPassword(password)
	if err != nil {
		return err
	}

	fmt.Printf("- username: %s\n  password: %q\n", username, hash)
	return nil
}

func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
