package browser

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-convo/pkg/hierarchy"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/recorder"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

type treeLoadedMsg struct {
	root *models.Entry
	err  error
}

type segmentsLoadedMsg struct {
	path     models.Path
	segments []models.Segment
	err      error
}

type transcribedMsg struct {
	path   models.Path
	result *service.TranscribeResult
	err    error
}

// recordingStoppedMsg reports the end of a recording, whether it was stopped or failed.
type recordingStoppedMsg struct {
	rec  *recorder.Recording
	path models.Path
	err  error
}

func fetchTreeCmd(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		root, err := svc.Tree(nil, hierarchy.SortModified, 0)
		return treeLoadedMsg{root: root, err: err}
	}
}

func fetchSegmentsCmd(svc *service.Service, p models.Path) tea.Cmd {
	return func() tea.Msg {
		segments, err := svc.Segments(p)
		return segmentsLoadedMsg{path: p, segments: segments, err: err}
	}
}

// transcribeCmd runs on bubbletea's command goroutine, so the UI keeps responding.
func transcribeCmd(ctx context.Context, svc *service.Service, p models.Path) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.TranscribePending(ctx, p)
		return transcribedMsg{path: p, result: res, err: err}
	}
}

// waitRecordingCmd blocks until rec ends on its own or through stopRecordingCmd.
func waitRecordingCmd(rec *recorder.Recording, p models.Path) tea.Cmd {
	return func() tea.Msg {
		return recordingStoppedMsg{rec: rec, path: p, err: rec.Wait()}
	}
}

// stopRecordingCmd flushes the last chunk off the UI goroutine.
func stopRecordingCmd(rec *recorder.Recording, p models.Path) tea.Cmd {
	return func() tea.Msg {
		return recordingStoppedMsg{rec: rec, path: p, err: rec.Stop()}
	}
}
