package tui

import (
	"time"

	"taskdeck-cli/internal/dispatch"
	"taskdeck-cli/internal/syncer"
	"taskdeck-cli/internal/taskapi"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirm
	modalAddTask
	modalLanguage
	modalSettings
	modalHelp
)

// clockTickMsg drives time-based chrome such as clearing the minibuffer.
type clockTickMsg struct{}

type syncMsg struct{ update syncer.Update }

type dispatchDoneMsg struct {
	cmd dispatch.Command
	res dispatch.Result
	err error
}

type urlOpenDoneMsg struct {
	err error
}

type blob struct {
	status  taskapi.BlobStatus
	content string
}

type blobsLoadedMsg struct {
	blobs map[string]blob
	err   error
}

type blobSavedMsg struct {
	name    string
	content string
	message string
	err     error
}

const minibufferAutoClearAfter = 6 * time.Second
