package accounts

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                  BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email               VARCHAR(254) NOT NULL,
		username            VARCHAR(150) NOT NULL,
		password_hash       VARCHAR(128) NOT NULL,
		first_name          VARCHAR(150) NOT NULL DEFAULT '',
		last_name           VARCHAR(150) NOT NULL DEFAULT '',
		avatar              VARCHAR(255) NOT NULL DEFAULT '',
		bio                 VARCHAR(500) NOT NULL DEFAULT '',
		phone_number        VARCHAR(17)  NOT NULL DEFAULT '',
		is_staff            BOOLEAN      NOT NULL DEFAULT FALSE,
		is_active           BOOLEAN      NOT NULL DEFAULT TRUE,
		is_verified         BOOLEAN      NOT NULL DEFAULT FALSE,
		email_notifications BOOLEAN      NOT NULL DEFAULT TRUE,
		last_login          DATETIME(6)  NULL,
		date_joined         DATETIME(6)  NOT NULL,
		created_at          DATETIME(6)  NOT NULL,
		updated_at          DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_date_joined (date_joined),
		KEY idx_users_last_login (last_login)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS activities (
		id          BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id     BIGINT       NOT NULL,
		action      VARCHAR(50)  NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		ip_address  VARCHAR(45)  NOT NULL DEFAULT '',
		created_at  DATETIME(6)  NOT NULL,
		KEY idx_activities_user_created (user_id, created_at),
		CONSTRAINT fk_activities_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
