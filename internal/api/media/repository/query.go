package mediaRepository

const (
	queryCreateMediaRef = `
		INSERT INTO media_refs (
			id,
			user_id,
			kind,
			created_at
		) VALUES (
			:id,
			:user_id,
			:kind,
			:created_at
		)
	`

	queryListMediaRefs = `
		SELECT
			id,
			user_id,
			kind,
			created_at
		FROM media_refs
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountMediaRefs = `
		SELECT COUNT(*) FROM media_refs
	`
)
