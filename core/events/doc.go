// Package events defines the typed overlay event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - overlay.*
//
// Semantics used across the package:
//
//   - Segment: append-only text piece emitted in stream order.
//   - Final: terminal immutable text for the current exchange.
//   - Exchange: one request/response round trip, identified by an id that
//     every assistant_response event carries.
//   - Generation: one capture session, identified by a monotonically
//     increasing number that every user_input event carries.
//
// user_input events
//
//   - UserCaptureStarted (user_input.capture_started): microphone opened.
//   - UserCaptureFailed (user_input.capture_failed): microphone could not be
//     opened or released.
//   - UserSpeechStarted (user_input.speech_started): first voiced tick of the
//     session.
//   - UserSpeechEnded (user_input.speech_ended): capture stopped; carries the
//     stop reason.
//   - UserUtteranceDiscarded (user_input.utterance_discarded): the session
//     produced nothing worth sending.
//   - UserTranscriptFinal (user_input.transcript_final): transcript of the
//     finalized utterance.
//
// assistant_response events
//
//   - AssistantResponseStarted (assistant_response.started): the stream for an
//     exchange opened.
//   - AssistantResponseSegment (assistant_response.segment): streamed response
//     text segment.
//   - AssistantResponseFinal (assistant_response.final): the stream completed;
//     carries the service's own full text.
//   - AssistantResponseFailed (assistant_response.failed): the request or the
//     stream failed.
//
// overlay events
//
//   - OverlayWake (overlay.wake): external wake signal.
//   - OverlayVisibilityToggled (overlay.visibility_toggled): overlay shown or
//     hidden.
//   - AvatarUpdated (overlay.avatar_updated): avatar state snapshot.
package events
