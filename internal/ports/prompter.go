package ports

import "context"

// DirectoryChoice is the result of a directory picker interaction.
type DirectoryChoice struct {
	Cancelled bool
	Path      string
}

// Prompter collects input from the user on behalf of the initializer.
type Prompter interface {
	// PickDirectory asks the user for a directory, suggesting defaultPath.
	PickDirectory(ctx context.Context, defaultPath string) (DirectoryChoice, error)

	// Confirm shows message with the given buttons and returns the chosen index.
	Confirm(ctx context.Context, message string, buttons []string) (int, error)
}
