package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"verba/internal/audio"
	"verba/internal/bootstrap"
	"verba/internal/config"
	"verba/internal/domain"
	"verba/internal/usecase"
)

const (
	eventRecording = "verba:recording"
	eventTick      = "verba:tick"
	eventLevel     = "verba:level"
	eventWorkflow  = "verba:workflow"
	eventError     = "verba:error"
)

// App is the Wails application root. It implements ports.EventSink by
// forwarding backend events to the frontend event bus.
type App struct {
	ctx context.Context

	services bootstrap.Services
	cfg      config.Config
	bootErr  error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.WorkflowError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.cfg = services.Config
	a.RecordingStateChanged(domain.RecordingStateIdle, "")
}

func (a *App) shutdown(ctx context.Context) {
	a.services.Close()
}

// StartRecording begins capturing the microphone.
func (a *App) StartRecording() (domain.RecordingStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecordingStatus{}, err
	}
	if err := a.services.Recorder.Start(a.ctx); err != nil {
		a.WorkflowError(domain.ClassifyError(err, domain.ErrorCodeStartup), err.Error())
		return domain.RecordingStatus{}, err
	}
	return a.services.Recorder.Status(), nil
}

// StopRecording finalizes the capture and returns the recorder status,
// including the playback path for review.
func (a *App) StopRecording() (domain.RecordingStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecordingStatus{}, err
	}
	if _, err := a.services.Recorder.Stop(a.ctx); err != nil {
		if !errors.Is(err, usecase.ErrNoActiveRecording) {
			a.WorkflowError(domain.ClassifyError(err, domain.ErrorCodeEmptyCapture), err.Error())
		}
		return a.services.Recorder.Status(), err
	}
	return a.services.Recorder.Status(), nil
}

// ResetRecording discards the current capture or stopped audio.
func (a *App) ResetRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.services.Recorder.Reset()
	return nil
}

// GetRecordingStatus returns the recorder snapshot.
func (a *App) GetRecordingStatus() domain.RecordingStatus {
	if a.services.Recorder == nil {
		return domain.RecordingStatus{State: domain.RecordingStateIdle}
	}
	return a.services.Recorder.Status()
}

// Transcribe submits the stopped recording to the transcription workflow.
func (a *App) Transcribe() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	artifact, ok := a.services.Recorder.Artifact()
	if !ok {
		return errors.New("no recording to transcribe")
	}
	return a.services.Workflow.Submit(a.ctx, artifact)
}

// SubmitFile transcribes an uploaded audio file instead of a recording.
func (a *App) SubmitFile(name string, data []byte) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	mime := audio.MIMEFromFilename(name)
	if mime == "" {
		err := fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, name)
		a.WorkflowError(domain.ErrorCodeValidation, err.Error())
		return err
	}
	return a.services.Workflow.Submit(a.ctx, domain.AudioArtifact{
		Bytes:       data,
		MIMEType:    mime,
		SourceLabel: name,
	})
}

// SelectStyle reformats the transcript with a built-in style, or with the
// custom instruction when task is "custom".
func (a *App) SelectStyle(task string, customInstruction string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	style := domain.Style{Task: domain.StyleTask(task)}
	if style.Task == domain.StyleCustom {
		style = domain.CustomStyle(customInstruction)
	}
	return a.services.Workflow.SelectStyle(style)
}

// GetWorkflow returns the transcription pipeline snapshot.
func (a *App) GetWorkflow() domain.WorkflowStatus {
	if a.services.Workflow == nil {
		return domain.WorkflowStatus{Step: domain.StepCapture, Style: domain.DefaultStyle()}
	}
	return a.services.Workflow.Status()
}

// ResetWorkflow returns the pipeline to the capture step.
func (a *App) ResetWorkflow() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.services.Workflow.Reset()
	return nil
}

// CopyResult puts the processed transcript on the clipboard.
func (a *App) CopyResult() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Workflow.CopyResult(a.ctx)
}

// DownloadResult saves the processed transcript next to the user's choice of
// path via the native save dialog.
func (a *App) DownloadResult() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	name, contents, err := a.services.Workflow.Download()
	if err != nil {
		return "", err
	}
	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		DefaultFilename: name,
		Title:           "Save transcription",
	})
	if err != nil || path == "" {
		return "", err
	}
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		a.WorkflowError(domain.ErrorCodeStorage, err.Error())
		return "", err
	}
	return path, nil
}

// SaveNote persists the processed transcript as a note for the signed-in
// user.
func (a *App) SaveNote() (domain.Note, error) {
	if err := a.requireReady(); err != nil {
		return domain.Note{}, err
	}
	userID, err := a.currentUserID()
	if err != nil {
		return domain.Note{}, err
	}
	status := a.services.Workflow.Status()
	if status.ProcessedText == "" {
		return domain.Note{}, usecase.ErrNoResult
	}
	duration := 0
	if artifact, ok := a.services.Workflow.Artifact(); ok {
		duration = artifact.DurationSeconds
	}
	note, err := a.services.Notes.Append(a.ctx, userID, status.ProcessedText, duration)
	if err != nil {
		a.WorkflowError(domain.ClassifyError(err, domain.ErrorCodeStorage), err.Error())
		return domain.Note{}, err
	}
	return note, nil
}

// ListNotes returns the signed-in user's saved notes, newest first.
func (a *App) ListNotes() ([]domain.Note, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	userID, err := a.currentUserID()
	if err != nil {
		return nil, err
	}
	return a.services.Notes.List(a.ctx, userID)
}

// SignUp registers a new account and signs it in.
func (a *App) SignUp(email, password string) (domain.AuthSession, error) {
	if err := a.requireReady(); err != nil {
		return domain.AuthSession{}, err
	}
	session, err := a.services.Auth.SignUp(a.ctx, email, password)
	if err != nil {
		a.WorkflowError(domain.ErrorCodeAuth, err.Error())
	}
	return session, err
}

// SignIn authenticates an existing account.
func (a *App) SignIn(email, password string) (domain.AuthSession, error) {
	if err := a.requireReady(); err != nil {
		return domain.AuthSession{}, err
	}
	session, err := a.services.Auth.SignIn(a.ctx, email, password)
	if err != nil {
		a.WorkflowError(domain.ErrorCodeAuth, err.Error())
	}
	return session, err
}

// SignOut ends the current session.
func (a *App) SignOut() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Auth.SignOut(a.ctx)
}

// GetCurrentUser returns the signed-in user, or nil.
func (a *App) GetCurrentUser() (*domain.User, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Auth.CurrentUser(a.ctx)
}

// GetPlans returns the subscription offerings.
func (a *App) GetPlans() ([]domain.Plan, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Billing.Plans(), nil
}

// GetSubscriptionStatus returns the signed-in user's subscription state and
// refreshes the local cache.
func (a *App) GetSubscriptionStatus() (domain.SubscriptionStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.SubscriptionStatus{}, err
	}
	userID, err := a.currentUserID()
	if err != nil {
		return domain.SubscriptionStatus{}, err
	}
	status, err := a.services.Billing.CheckStatus(a.ctx, userID)
	if err != nil {
		if cached, found, cacheErr := a.services.Subscriptions.Get(a.ctx, userID); cacheErr == nil && found {
			return cached, nil
		}
		return domain.SubscriptionStatus{}, err
	}
	if err := a.services.Subscriptions.Put(a.ctx, userID, status); err != nil {
		a.services.Logger.Warn("could not cache subscription status")
	}
	return status, nil
}

// Checkout starts a checkout for the given plan and returns the redirect
// target on success.
func (a *App) Checkout(planID string, isTrial bool) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	user, err := a.services.Auth.CurrentUser(a.ctx)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrNotAuthenticated
	}
	redirect, err := a.services.Billing.CreateCheckoutSession(a.ctx, planID, user.ID, user.Email, isTrial)
	if err != nil {
		a.WorkflowError(domain.ClassifyError(err, domain.ErrorCodeStorage), err.Error())
		return "", err
	}
	_ = a.services.Subscriptions.Invalidate(a.ctx, user.ID)
	return redirect, nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	return map[string]string{
		"whisperModel":     a.cfg.HuggingFace.WhisperModel,
		"generationModel":  a.cfg.HuggingFace.GenerationModel,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services.Recorder == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) currentUserID() (string, error) {
	user, err := a.services.Auth.CurrentUser(a.ctx)
	if err != nil {
		return "", err
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return "", domain.ErrNotAuthenticated
	}
	return user.ID, nil
}

// RecordingStateChanged emits recorder lifecycle updates to the frontend.
func (a *App) RecordingStateChanged(state domain.RecordingState, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecording, map[string]string{
		"state":   string(state),
		"message": recordingStateMessage(state),
		"detail":  detail,
	})
}

// RecordingTick emits the elapsed-seconds counter.
func (a *App) RecordingTick(elapsedSeconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTick, elapsedSeconds)
}

// AudioLevel emits the live input level for the meter.
func (a *App) AudioLevel(level float64) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventLevel, level)
}

// WorkflowChanged emits the pipeline snapshot.
func (a *App) WorkflowChanged(status domain.WorkflowStatus) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventWorkflow, status)
}

// WorkflowError emits backend errors to the UI.
func (a *App) WorkflowError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func recordingStateMessage(state domain.RecordingState) string {
	switch state {
	case domain.RecordingStateIdle:
		return "Ready to record"
	case domain.RecordingStateAcquiring:
		return "Requesting microphone..."
	case domain.RecordingStateRecording:
		return "Recording"
	case domain.RecordingStateStopped:
		return "Recording stopped"
	case domain.RecordingStateReleased:
		return "Recorder shut down"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Microphone access denied"
	case domain.ErrorCodeEmptyCapture:
		return "No audio was captured"
	case domain.ErrorCodeValidation:
		return "Audio file rejected"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	case domain.ErrorCodeGeneration:
		return "Formatting failed; showing basic formatting"
	case domain.ErrorCodeStorage:
		return "Could not save data"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodeAuth:
		return "Authentication failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
