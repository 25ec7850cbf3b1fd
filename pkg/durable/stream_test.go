package durable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durablestream/go-llm/pkg/llm"
	"github.com/durablestream/go-llm/pkg/providers/mock"
)

func textDelta(text string) llm.StreamEvent {
	return llm.NewDeltaEvent(llm.StreamDelta{Content: []llm.ContentPart{llm.TextPart(text)}})
}

func finish() llm.StreamEvent {
	reason := llm.FinishReasonStop
	return llm.NewFinishEvent(llm.ResponseMetadata{FinishReason: &reason})
}

// exhaust pulls a stream until it signals exhaustion, returning every event
func exhaust(t *testing.T, s *Stream) []llm.StreamEvent {
	t.Helper()
	var all []llm.StreamEvent
	for i := 0; i < 1000; i++ {
		events, ok := s.GetNext()
		if ok && events == nil {
			return all
		}
		all = append(all, events...)
	}
	t.Fatal("stream did not exhaust")
	return nil
}

func TestDurableStreamLiveRecordsEveryPull(t *testing.T) {
	dir := t.TempDir()
	client := &mock.Client{}
	client.EnqueueStream(
		[]llm.StreamEvent{textDelta("Once ")},
		nil, // one pull finds nothing
		[]llm.StreamEvent{textDelta("upon a time"), finish()},
	)

	journal, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)

	stream, err := OpenStream(context.Background(), client, journal, []llm.Message{
		llm.NewTextMessage(llm.RoleUser, "tell me a story"),
	}, llm.Config{})
	require.NoError(t, err)
	defer stream.Close()

	events := exhaust(t, stream)
	require.Len(t, events, 3)
	assert.Equal(t, "Once ", llm.TextFromParts(events[0].Delta.Content))
	assert.True(t, events[2].IsFinish())
	assert.Equal(t, 1, client.StreamCalls)

	require.NoError(t, journal.Close())
}

func TestDurableStreamReplayIssuesNoBackendCalls(t *testing.T) {
	dir := t.TempDir()
	original := []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")}

	// first run: live, recorded to completion
	liveClient := &mock.Client{}
	liveClient.EnqueueStream(
		[]llm.StreamEvent{textDelta("a")},
		nil,
		[]llm.StreamEvent{textDelta("b"), finish()},
	)
	journal, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	stream, err := OpenStream(context.Background(), liveClient, journal, original, llm.Config{})
	require.NoError(t, err)
	liveEvents := exhaust(t, stream)
	stream.Close()
	require.NoError(t, journal.Close())

	// second run: everything replays from the journal
	replayClient := &mock.Client{}
	journal2, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	defer func() { _ = journal2.Close() }()

	stream2, err := OpenStream(context.Background(), replayClient, journal2, original, llm.Config{})
	require.NoError(t, err)
	defer stream2.Close()

	var replayed []llm.StreamEvent
	sawPending := false
	for i := 0; i < 1000; i++ {
		events, ok := stream2.GetNext()
		if !ok {
			sawPending = true
			continue
		}
		if events == nil {
			break
		}
		replayed = append(replayed, events...)
	}

	assert.Equal(t, liveEvents, replayed, "replay must reproduce the live run verbatim")
	assert.True(t, sawPending, "recorded pending pulls replay as pending")
	assert.Equal(t, 0, replayClient.StreamCalls, "a finished conversation never contacts the backend")
	assert.Equal(t, 0, replayClient.SendCalls)
}

func TestDurableStreamResumesAfterTruncatedJournal(t *testing.T) {
	dir := t.TempDir()
	original := []llm.Message{llm.NewTextMessage(llm.RoleUser, "tell me a story")}

	// first run crashes mid-stream: deltas recorded, no terminal event
	liveClient := &mock.Client{}
	liveClient.EnqueueStream(
		[]llm.StreamEvent{textDelta("Once upon ")},
		[]llm.StreamEvent{textDelta("a time")},
	)
	journal, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	stream, err := OpenStream(context.Background(), liveClient, journal, original, llm.Config{})
	require.NoError(t, err)
	_, ok := stream.GetNext()
	require.True(t, ok)
	_, ok = stream.GetNext()
	require.True(t, ok)
	// no Close, no further pulls: the process dies here
	require.NoError(t, journal.Close())

	// second run: replay the two deltas, then resume live
	resumeClient := &mock.Client{}
	resumeClient.EnqueueStream(
		[]llm.StreamEvent{textDelta(", the end"), finish()},
	)
	journal2, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	defer func() { _ = journal2.Close() }()

	stream2, err := OpenStream(context.Background(), resumeClient, journal2, original, llm.Config{})
	require.NoError(t, err)
	defer stream2.Close()

	events := exhaust(t, stream2)
	require.Len(t, events, 4)
	assert.Equal(t, "Once upon ", llm.TextFromParts(events[0].Delta.Content))
	assert.Equal(t, "a time", llm.TextFromParts(events[1].Delta.Content))
	assert.Equal(t, ", the end", llm.TextFromParts(events[2].Delta.Content))
	assert.True(t, events[3].IsFinish())

	// exactly one new backend call, made with a continuation prompt
	require.Equal(t, 1, resumeClient.StreamCalls)
	prompt := resumeClient.Prompts[0]
	require.NotEmpty(t, prompt)
	assert.Equal(t, llm.RoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].GetText(), "interrupted before completion")

	var promptText string
	for _, m := range prompt {
		promptText += m.GetText() + "\n"
	}
	assert.Contains(t, promptText, "tell me a story")
	assert.Contains(t, promptText, "Once upon a time")
}

func TestDurableStreamResumedRunIsItselfReplayable(t *testing.T) {
	dir := t.TempDir()
	original := []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")}

	// run 1: truncated
	c1 := &mock.Client{}
	c1.EnqueueStream([]llm.StreamEvent{textDelta("a")})
	j1, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	s1, err := OpenStream(context.Background(), c1, j1, original, llm.Config{})
	require.NoError(t, err)
	_, _ = s1.GetNext()
	require.NoError(t, j1.Close())

	// run 2: resumes and completes; the resumed pulls are recorded too
	c2 := &mock.Client{}
	c2.EnqueueStream([]llm.StreamEvent{textDelta("b"), finish()})
	j2, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	s2, err := OpenStream(context.Background(), c2, j2, original, llm.Config{})
	require.NoError(t, err)
	run2 := exhaust(t, s2)
	s2.Close()
	require.NoError(t, j2.Close())
	require.Equal(t, 1, c2.StreamCalls)

	// run 3: the whole conversation, including the resumed tail, replays
	c3 := &mock.Client{}
	j3, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	defer func() { _ = j3.Close() }()
	s3, err := OpenStream(context.Background(), c3, j3, original, llm.Config{})
	require.NoError(t, err)
	defer s3.Close()

	run3 := exhaust(t, s3)
	assert.Equal(t, run2, run3)
	assert.Equal(t, 0, c3.StreamCalls)
}

func TestDurableStreamSubscriptionSurvivesResume(t *testing.T) {
	dir := t.TempDir()
	original := []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")}

	c1 := &mock.Client{}
	c1.EnqueueStream([]llm.StreamEvent{textDelta("a")})
	j1, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	s1, err := OpenStream(context.Background(), c1, j1, original, llm.Config{})
	require.NoError(t, err)
	_, _ = s1.GetNext()
	require.NoError(t, j1.Close())

	c2 := &mock.Client{}
	c2.EnqueueStream([]llm.StreamEvent{textDelta("b"), finish()})
	j2, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	defer func() { _ = j2.Close() }()
	s2, err := OpenStream(context.Background(), c2, j2, original, llm.Config{})
	require.NoError(t, err)
	defer s2.Close()

	// subscribed while replaying; the handle must keep working after the
	// stream transitions to the new live session
	pollable := s2.Subscribe()
	events := exhaust(t, s2)
	require.Len(t, events, 3)

	pollable.Block() // the live session is exhausted, so it reports ready
	select {
	case <-pollable.Ready():
	default:
		t.Fatal("handle issued during replay must observe the live session")
	}
}

func TestDurableStreamFinishedReplayNeverResumes(t *testing.T) {
	dir := t.TempDir()
	original := []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")}

	c1 := &mock.Client{}
	c1.EnqueueStream([]llm.StreamEvent{textDelta("a"), finish()})
	j1, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	s1, err := OpenStream(context.Background(), c1, j1, original, llm.Config{})
	require.NoError(t, err)
	exhaust(t, s1)
	require.NoError(t, j1.Close())

	c2 := &mock.Client{}
	j2, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	defer func() { _ = j2.Close() }()
	s2, err := OpenStream(context.Background(), c2, j2, original, llm.Config{})
	require.NoError(t, err)
	defer s2.Close()

	exhaust(t, s2)
	// pulls beyond the recorded finish stay exhausted without a backend call
	events, ok := s2.GetNext()
	assert.True(t, ok)
	assert.Nil(t, events)
	assert.Equal(t, 0, c2.StreamCalls)
}

func TestDurableStreamCloseIsLocalOnly(t *testing.T) {
	client := &mock.Client{}
	scripted := client.EnqueueStream([]llm.StreamEvent{textDelta("a")})

	journal := openTestJournal(t, "conv")
	stream, err := OpenStream(context.Background(), client, journal, nil, llm.Config{})
	require.NoError(t, err)

	entriesBefore := journal.count
	stream.Close()
	stream.Close()

	assert.True(t, scripted.IsClosed())
	assert.Equal(t, entriesBefore, journal.count, "teardown must not be journaled")

	events, ok := stream.GetNext()
	assert.True(t, ok)
	assert.Nil(t, events)
}

func TestOpenStreamFailsOnForeignJournal(t *testing.T) {
	dir := t.TempDir()

	// record a non-stream entry first, so the stream's replay mismatches
	j, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	require.NoError(t, j.Persist(fnSend, llm.NewChatErrorEvent(llm.NewError(llm.ErrCodeUnknown, "x"))))
	require.NoError(t, j.Close())

	j2, err := OpenBadgerJournal(JournalOptions{Path: dir, SessionID: "conv"})
	require.NoError(t, err)
	defer func() { _ = j2.Close() }()

	_, err = OpenStream(context.Background(), &mock.Client{}, j2, nil, llm.Config{})
	assert.ErrorIs(t, err, ErrJournalMismatch)
}

func TestNewReplayStreamFailsOnEmptyJournal(t *testing.T) {
	journal := openTestJournal(t, "conv")

	_, err := NewReplayStream(context.Background(), &mock.Client{}, journal, nil, llm.Config{})
	assert.ErrorIs(t, err, ErrJournalExhausted)
}
