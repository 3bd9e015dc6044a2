package storage

const (
	KeyRSVPResponses     = "rsvp_responses"
	KeyAttendeeDetail    = "attendee_detail"
	KeyGuestbookMessages = "guestbook_messages"
	KeyContentData       = "content_data"
	KeyContentUpdated    = "content_updated"
	KeyAdminSession      = "admin_session"
	KeyScannedEntries    = "scanned_entries"
	KeyCurrentQR         = "current_qr"
	KeyQRCodes           = "qr_codes"
)
