package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sirupsen/logrus"

	"github.com/burntcarrot/treepad/commons"
	"github.com/burntcarrot/treepad/crdt"
	"github.com/burntcarrot/treepad/editscript"
)

var errUsage = errors.New("invalid usage")

// app runs treepad commands against replica state files.
type app struct {
	out    io.Writer
	flags  Flags
	cfg    crdt.Config
	logger *logrus.Logger
}

func newApp(out io.Writer, flags Flags, logger *logrus.Logger) (*app, error) {
	cfg, err := flags.docConfig(logger)
	if err != nil {
		return nil, err
	}
	return &app{out: out, flags: flags, cfg: cfg, logger: logger}, nil
}

// run dispatches a command line (without flags) to its handler.
func (a *app) run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, args := args[0], args[1:]
	switch {
	case cmd == "diff" && len(args) == 2:
		return a.diff(args[0], args[1])
	case cmd == "edit" && len(args) == 2:
		return a.edit(args[0], args[1])
	case cmd == "patch" && len(args) == 2:
		return a.patch(args[0], args[1])
	case cmd == "merge" && len(args) >= 2:
		return a.merge(args[0], args[1:])
	case cmd == "compact" && len(args) == 1:
		return a.compact(args[0])
	case cmd == "show" && len(args) == 1:
		return a.show(args[0])
	default:
		return fmt.Errorf("%w: %s with %d arguments", errUsage, cmd, len(args))
	}
}

// diff prints the edit script turning the content of one file into another.
func (a *app) diff(oldPath, newPath string) error {
	oldText, err := os.ReadFile(oldPath)
	if err != nil {
		return err
	}
	newText, err := os.ReadFile(newPath)
	if err != nil {
		return err
	}

	ops := editscript.EditList(string(oldText), string(newText))
	a.logger.Infof("DIFF: %s -> %s, %d edits", oldPath, newPath, len(ops))

	if a.flags.JSON {
		msg := commons.Message{Type: commons.OperationsMessage, ID: uuid.New(), Operations: commons.FromEditScript(ops)}
		return json.NewEncoder(a.out).Encode(msg)
	}

	printOps(a.out, ops)

	if a.flags.Pretty {
		dmp := diffpatch.New()
		diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(string(oldText), string(newText), false))
		fmt.Fprintln(a.out, dmp.DiffPrettyText(diffs))
	}

	return nil
}

// printOps writes one edit per line, deletes in red and inserts in green.
func printOps(w io.Writer, ops []editscript.Op) {
	del := color.New(color.FgRed)
	ins := color.New(color.FgGreen)

	for _, op := range ops {
		switch op.Type {
		case editscript.Delete:
			del.Fprintf(w, "- %v\n", op)
		case editscript.Insert:
			ins.Fprintf(w, "+ %v\n", op)
		}
	}
}

// edit brings the replica in statePath to the content of textPath.
func (a *app) edit(statePath, textPath string) error {
	id, doc, err := loadState(statePath, a.cfg)
	if err != nil {
		return err
	}

	text, err := os.ReadFile(textPath)
	if err != nil {
		return err
	}

	ops := editscript.EditList(doc.Content(), string(text))
	a.logger.Infof("LOCAL EDIT: %d edits from %s", len(ops), textPath)

	if err := crdt.Patch(doc, ops); err != nil {
		return err
	}

	a.printDoc(id, doc)
	fmt.Fprintf(a.out, "applied %d edits to %s\n", len(ops), statePath)

	return saveState(statePath, id, doc)
}

// patch replays an operations message onto the replica in statePath.
func (a *app) patch(statePath, opsPath string) error {
	id, doc, err := loadState(statePath, a.cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opsPath)
	if err != nil {
		return err
	}

	var msg commons.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("read %s: %w", opsPath, err)
	}
	if msg.Type != commons.OperationsMessage {
		return fmt.Errorf("read %s: not an operations message", opsPath)
	}

	ops, err := commons.ToEditScript(msg.Operations)
	if err != nil {
		return fmt.Errorf("read %s: %w", opsPath, err)
	}

	a.logger.Infof("REMOTE EDIT: %d edits from %v", len(ops), msg.ID)

	if err := crdt.Patch(doc, ops); err != nil {
		return err
	}

	a.printDoc(id, doc)
	fmt.Fprintf(a.out, "applied %d edits to %s\n", len(ops), statePath)

	return saveState(statePath, id, doc)
}

// merge unions the replicas in otherPaths into the replica in statePath.
func (a *app) merge(statePath string, otherPaths []string) error {
	id, doc, err := loadState(statePath, a.cfg)
	if err != nil {
		return err
	}

	for _, path := range otherPaths {
		if _, err := os.Stat(path); err != nil {
			return err
		}

		otherID, other, err := loadState(path, a.cfg)
		if err != nil {
			return err
		}

		if err := doc.Merge(other.Snapshot()); err != nil {
			a.logger.Errorf("failed to merge %s (replica %v): %v", path, otherID, err)
			return fmt.Errorf("merge %s: %w", path, err)
		}
		a.logger.Infof("MERGED: replica %v from %s", otherID, path)
	}

	a.printDoc(id, doc)
	fmt.Fprintln(a.out, doc.Content())

	return saveState(statePath, id, doc)
}

// compact collapses the replica in statePath.
func (a *app) compact(statePath string) error {
	id, doc, err := loadState(statePath, a.cfg)
	if err != nil {
		return err
	}

	stored, tombstones := doc.Stats()
	if err := doc.Collapse(); err != nil {
		return err
	}
	after, _ := doc.Stats()

	a.logger.Warnf("COMPACTED: %s, unmerged edits from other replicas against it are no longer valid", statePath)
	fmt.Fprintf(a.out, "stored positions: %d -> %d (%d tombstones dropped)\n", stored, after, tombstones)

	return saveState(statePath, id, doc)
}

// show prints the content of the replica in statePath.
func (a *app) show(statePath string) error {
	if _, err := os.Stat(statePath); err != nil {
		return err
	}

	id, doc, err := loadState(statePath, a.cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, doc.Content())
	if a.flags.Debug {
		fmt.Fprintln(a.out, dumpDoc(id, doc))
	}

	return nil
}

// printDoc "prints" the document state to the logs.
// The default behavior for printDoc is to NOT log anything; it is toggled via the `--debug` flag.
func (a *app) printDoc(id uuid.UUID, doc *crdt.Document) {
	if a.flags.Debug {
		a.logger.Infof("---DOCUMENT STATE---\n%s", dumpDoc(id, doc))
	}
}
