package core

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id               BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		slug             VARCHAR(20)  NOT NULL,
		title            VARCHAR(200) NOT NULL,
		content          MEDIUMTEXT   NOT NULL,
		meta_description VARCHAR(160) NOT NULL DEFAULT '',
		is_published     BOOLEAN      NOT NULL DEFAULT FALSE,
		published_at     DATETIME(6)  NULL,
		published_until  DATETIME(6)  NULL,
		created_at       DATETIME(6)  NOT NULL,
		updated_at       DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_pages_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS faqs (
		id              BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
		category        VARCHAR(20) NOT NULL,
		question        TEXT        NOT NULL,
		answer          MEDIUMTEXT  NOT NULL,
		is_featured     BOOLEAN     NOT NULL DEFAULT FALSE,
		view_count      INT         NOT NULL DEFAULT 0,
		is_published    BOOLEAN     NOT NULL DEFAULT FALSE,
		published_at    DATETIME(6) NULL,
		published_until DATETIME(6) NULL,
		sort_order      INT         NOT NULL DEFAULT 0,
		created_at      DATETIME(6) NOT NULL,
		updated_at      DATETIME(6) NOT NULL,
		KEY idx_faqs_listing (category, sort_order, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS contacts (
		id          BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		email       VARCHAR(254) NOT NULL,
		category    VARCHAR(20)  NOT NULL DEFAULT 'general',
		subject     VARCHAR(200) NOT NULL,
		message     TEXT         NOT NULL,
		status      VARCHAR(20)  NOT NULL DEFAULT 'new',
		user_id     BIGINT       NULL,
		assigned_to BIGINT       NULL,
		notes       TEXT         NOT NULL,
		ip_address  VARCHAR(45)  NOT NULL DEFAULT '',
		user_agent  VARCHAR(512) NOT NULL DEFAULT '',
		resolved_at DATETIME(6)  NULL,
		created_at  DATETIME(6)  NOT NULL,
		updated_at  DATETIME(6)  NOT NULL,
		KEY idx_contacts_status_created (status, created_at),
		KEY idx_contacts_email (email),
		CONSTRAINT fk_contacts_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE SET NULL,
		CONSTRAINT fk_contacts_assignee FOREIGN KEY (assigned_to) REFERENCES users (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS attachments (
		id                CHAR(36)     NOT NULL PRIMARY KEY,
		file_path         VARCHAR(255) NOT NULL,
		original_filename VARCHAR(255) NOT NULL,
		file_size         BIGINT       NOT NULL,
		mime_type         VARCHAR(100) NOT NULL DEFAULT '',
		description       VARCHAR(500) NOT NULL DEFAULT '',
		uploaded_by       BIGINT       NULL,
		is_public         BOOLEAN      NOT NULL DEFAULT FALSE,
		download_count    INT          NOT NULL DEFAULT 0,
		created_at        DATETIME(6)  NOT NULL,
		updated_at        DATETIME(6)  NOT NULL,
		is_deleted        BOOLEAN      NOT NULL DEFAULT FALSE,
		deleted_at        DATETIME(6)  NULL,
		deleted_by        BIGINT       NULL,
		KEY idx_attachments_owner (uploaded_by, is_deleted),
		CONSTRAINT fk_attachments_user FOREIGN KEY (uploaded_by) REFERENCES users (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS images (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		file_path   VARCHAR(255) NOT NULL,
		title       VARCHAR(200) NOT NULL DEFAULT '',
		alt_text    VARCHAR(200) NOT NULL DEFAULT '',
		caption     TEXT         NOT NULL,
		width       INT          NULL,
		height      INT          NULL,
		uploaded_by BIGINT       NULL,
		created_at  DATETIME(6)  NOT NULL,
		updated_at  DATETIME(6)  NOT NULL,
		is_deleted  BOOLEAN      NOT NULL DEFAULT FALSE,
		deleted_at  DATETIME(6)  NULL,
		deleted_by  BIGINT       NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS email_outbox (
		id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		sender     VARCHAR(254) NOT NULL,
		recipients TEXT         NOT NULL,
		subject    VARCHAR(255) NOT NULL,
		body_text  MEDIUMTEXT   NOT NULL,
		body_html  MEDIUMTEXT   NOT NULL,
		created_at DATETIME(6)  NOT NULL,
		sent_at    DATETIME(6)  NULL,
		KEY idx_outbox_pending (sent_at, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS form_submissions (
		id           BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
		form_id      VARCHAR(64) NOT NULL,
		submitted_at DATETIME(6) NOT NULL,
		data         JSON        NOT NULL,
		KEY idx_form_submissions_form (form_id, submitted_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
