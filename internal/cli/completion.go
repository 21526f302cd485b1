package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanaylab/mcbrowse/pkg/extract"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mcbrowse.

To load completions:

Bash:
  $ source <(mcbrowse completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ mcbrowse completion bash > /etc/bash_completion.d/mcbrowse
  # macOS:
  $ mcbrowse completion bash > $(brew --prefix)/etc/bash_completion.d/mcbrowse

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ mcbrowse completion zsh > "${fpath[1]}/_mcbrowse"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ mcbrowse completion fish | source

  # To load completions for each session, execute once:
  $ mcbrowse completion fish > ~/.config/fish/completions/mcbrowse.fish

PowerShell:
  PS> mcbrowse completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> mcbrowse completion powershell > mcbrowse.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// completeEntities completes entity arguments from the repository's entity
// axis.
func (c *CLI) completeEntities(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	src, err := c.openSource()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	axis, err := cmd.Flags().GetString("entity-axis")
	if err != nil || axis == "" {
		axis = extract.DefaultEntityAxis
	}
	entries, err := src.AxisEntries(axis)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e, toComplete) && !slices.Contains(args, e) {
			out = append(out, e)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
