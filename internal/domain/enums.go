package domain

// SegmentStatus represents the finalization lifecycle of a segment.
// Only the finalization engine moves a segment between statuses.
type SegmentStatus string

const (
	SegmentStatusPending    SegmentStatus = "pending"
	SegmentStatusProcessing SegmentStatus = "processing"
	SegmentStatusReady      SegmentStatus = "ready"
	SegmentStatusError      SegmentStatus = "error"
)

// WorkflowPhase governs which operations are valid on a session.
type WorkflowPhase string

const (
	PhaseUpload    WorkflowPhase = "upload"
	PhaseReview    WorkflowPhase = "review"
	PhaseFinalized WorkflowPhase = "finalized"
)

// SegmentField names an editable segment field for single-field edits.
type SegmentField string

const (
	FieldTitle       SegmentField = "title"
	FieldDescription SegmentField = "description"
	FieldCategory    SegmentField = "category"
	FieldTags        SegmentField = "tags"
	FieldNotes       SegmentField = "notes"
	FieldStartPage   SegmentField = "start_page"
	FieldEndPage     SegmentField = "end_page"
)

// ValidSegmentFields is the set of fields SetField accepts.
var ValidSegmentFields = map[SegmentField]bool{
	FieldTitle:       true,
	FieldDescription: true,
	FieldCategory:    true,
	FieldTags:        true,
	FieldNotes:       true,
	FieldStartPage:   true,
	FieldEndPage:     true,
}

// AuditAction identifies the kind of mutation recorded in the audit trail.
type AuditAction string

const (
	AuditSessionCreated    AuditAction = "session.created"
	AuditSessionAnalyzed   AuditAction = "session.analyzed"
	AuditSessionReset      AuditAction = "session.reset"
	AuditSessionUndo       AuditAction = "session.undo"
	AuditSessionRedo       AuditAction = "session.redo"
	AuditContextEdited     AuditAction = "session.context_edited"
	AuditSegmentEdited     AuditAction = "segment.edited"
	AuditSegmentDeleted    AuditAction = "segment.deleted"
	AuditBulkTag           AuditAction = "segment.bulk_tag"
	AuditBulkCategory      AuditAction = "segment.bulk_category"
	AuditFinalizeCompleted AuditAction = "session.finalize_completed"
	AuditExportUploaded    AuditAction = "session.export_uploaded"
)
