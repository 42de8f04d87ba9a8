package commands

import "fmt"

// Completions implements `bfc completions <shell>`. Shell-completion
// generation is an external collaborator this repository does not own the
// shape of; this stub validates the shell name and reports that the real
// script lives outside the core, rather than hand-rolling a bash/zsh/fish
// completion generator here.
func Completions(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("completions: expected exactly one shell name (bash, zsh, or fish)")
	}

	switch args[0] {
	case "bash", "zsh", "fish":
		fmt.Printf("# %s completions for bfc are generated by the packaging step, not the compiler core\n", args[0])
		return nil
	default:
		return fmt.Errorf("completions: unknown shell %q (want bash, zsh, or fish)", args[0])
	}
}
