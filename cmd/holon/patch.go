package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/holon/internal/cli"
	"github.com/aretw0/holon/internal/dto"
	"github.com/aretw0/holon/pkg/patch"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Edit a workflow file",
	Long: `Applies one structural edit to a workflow file. The file is rewritten in
place unless --stdout is given, in which case the edited source is printed
and the file is left alone. Everything outside the edited span is kept byte
for byte.`,
}

// editFunc is one patch operation over source text.
type editFunc func(src []byte) ([]byte, error)

// applyEdit validates req, then applies op to the file named by args[0].
func applyEdit(cmd *cobra.Command, args []string, req interface{ Validate() error }, op editFunc) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, setup, name, err := openFile(cmd, args)
	if err != nil {
		return err
	}
	defer setup.Close()

	ctx := cmd.Context()
	if toStdout, _ := cmd.Flags().GetBool("stdout"); toStdout {
		src, err := setup.Engine.Source(ctx, name)
		if err != nil {
			return err
		}
		out, err := op(src)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	return setup.Engine.Edit(ctx, name, op)
}

var patchRenameCmd = &cobra.Command{
	Use:   "rename <file> <old> <new>",
	Short: "Rename a step and every call to it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := dto.RenameNodeRequest{OldName: args[1], NewName: args[2]}
		return applyEdit(cmd, args, req, func(src []byte) ([]byte, error) {
			return patch.Rename(src, req.OldName, req.NewName)
		})
	},
}

var patchAddNodeCmd = &cobra.Command{
	Use:   "add-node <file> <type>",
	Short: "Append a declarative node",
	Long:  `Appends a dsl.Spec declaration and prints the id of the new node on stderr.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := propsFlag(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")
		label, _ := cmd.Flags().GetString("label")
		req := dto.AddSpecNodeRequest{NodeID: id, NodeType: args[1], Label: label, Props: props}

		var added string
		err = applyEdit(cmd, args, req, func(src []byte) ([]byte, error) {
			out, newID, err := patch.AddDeclarativeNode(src, req.NodeSpec())
			added = newID
			return out, err
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), added)
		return nil
	},
}

var patchAddLinkCmd = &cobra.Command{
	Use:   "add-link <file> <source-id> <source-port> <target-id> <target-port>",
	Short: "Link an output port to an input port inside a workflow",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflow, _ := cmd.Flags().GetString("workflow")
		req := dto.AddLinkRequest{
			WorkflowName: workflow,
			SourceNodeID: args[1],
			SourcePort:   args[2],
			TargetNodeID: args[3],
			TargetPort:   args[4],
		}
		return applyEdit(cmd, args, req, func(src []byte) ([]byte, error) {
			return patch.AddLink(src, req.WorkflowName, req.Link())
		})
	},
}

var patchSetNodeCmd = &cobra.Command{
	Use:   "set-node <file> <id>",
	Short: "Change the type, label or props of a declarative node",
	Long:  `Only the fields given as flags change. --prop replaces the whole props map; --clear-props empties it.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := propsFlag(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		nodeType, _ := flags.GetString("type")
		label, _ := flags.GetString("label")
		clearProps, _ := flags.GetBool("clear-props")

		req := dto.PatchSpecNodeRequest{
			NodeID:      args[1],
			NodeType:    nodeType,
			Label:       label,
			Props:       props,
			SetNodeType: flags.Changed("type"),
			SetLabel:    flags.Changed("label"),
			SetProps:    flags.Changed("prop") || clearProps,
		}
		if !req.SetNodeType && !req.SetLabel && !req.SetProps {
			return fmt.Errorf("nothing to change: use --type, --label, --prop or --clear-props")
		}
		return applyEdit(cmd, args, req, func(src []byte) ([]byte, error) {
			return patch.PatchDeclarativeNode(src, req.NodeID, req.SpecPatch())
		})
	},
}

var patchReplaceStepCmd = &cobra.Command{
	Use:   "replace-step <file> <name>",
	Short: "Replace the function declaration of a step",
	Long:  `Reads the new declaration from --code, or from --from (a file path, or - for stdin).`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := codeFlag(cmd)
		if err != nil {
			return err
		}
		req := dto.PatchNodeRequest{NodeName: args[1], NewFunctionCode: code}
		return applyEdit(cmd, args, req, func(src []byte) ([]byte, error) {
			return patch.PatchCallableBody(src, req.NodeName, req.NewFunctionCode)
		})
	},
}

var patchDeleteCmd = &cobra.Command{
	Use:   "delete <file> <id>",
	Short: "Delete a step, workflow or declarative node",
	Long: `Removes the declaration only. Links and calls that still reference the
node are left in place; holon validate reports them as dangling links.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := dto.DeleteNodeRequest{NodeID: args[1]}
		return applyEdit(cmd, args, req, func(src []byte) ([]byte, error) {
			return patch.DeleteNode(src, req.NodeID)
		})
	},
}

func propsFlag(cmd *cobra.Command) (map[string]any, error) {
	pairs, _ := cmd.Flags().GetStringArray("prop")
	if len(pairs) == 0 {
		return nil, nil
	}
	return cli.ParseArgs(pairs)
}

func codeFlag(cmd *cobra.Command) (string, error) {
	code, _ := cmd.Flags().GetString("code")
	from, _ := cmd.Flags().GetString("from")
	switch {
	case code != "" && from != "":
		return "", fmt.Errorf("use either --code or --from")
	case from == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case from != "":
		data, err := os.ReadFile(from)
		return string(data), err
	}
	return code, nil
}

func init() {
	rootCmd.AddCommand(patchCmd)
	patchCmd.PersistentFlags().Bool("stdout", false, "Print the edited source instead of writing the file")

	patchAddNodeCmd.Flags().String("id", "", "Node id (default spec:<type>:<uuid>)")
	patchAddNodeCmd.Flags().String("label", "", "Node label")
	patchAddNodeCmd.Flags().StringArray("prop", nil, "Property as key=value, JSON-decoded when it parses (repeatable)")

	patchAddLinkCmd.Flags().StringP("workflow", "w", dto.DefaultWorkflow, "Workflow that declares the link")

	patchSetNodeCmd.Flags().String("type", "", "New node type")
	patchSetNodeCmd.Flags().String("label", "", "New label")
	patchSetNodeCmd.Flags().StringArray("prop", nil, "Property as key=value; replaces all props (repeatable)")
	patchSetNodeCmd.Flags().Bool("clear-props", false, "Remove all props")

	patchReplaceStepCmd.Flags().String("code", "", "New function declaration")
	patchReplaceStepCmd.Flags().String("from", "", "Read the declaration from a file, or - for stdin")

	patchCmd.AddCommand(patchRenameCmd, patchAddNodeCmd, patchAddLinkCmd, patchSetNodeCmd, patchReplaceStepCmd, patchDeleteCmd)
}
