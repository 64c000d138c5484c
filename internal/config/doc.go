/*
Package config provides configuration management for PersistFS with multi-source support.

Configuration is resolved in precedence order: environment variables
(PERSISTFS_*) override YAML file values, which override compiled-in defaults.

Configuration file format:

	global:
	  log_level: INFO
	  metrics_port: 8080

	storage:
	  account_id: "abc123"
	  bucket: "persistfs-workspace"
	  access_key_id: ""
	  secret_access_key: ""
	  mount_path: /mnt/persist
	  storage_domain: r2.cloudflarestorage.com
	  region: auto

	sync:
	  source_root: /home/worker
	  config_dir_name: .worker
	  legacy_config_dir_name: .workerrc
	  config_file_name: settings.json
	  workspace_dir_name: workspace
	  marker_file_name: .last-sync

	poll:
	  quick: {interval: 100ms, max_attempts: 20}
	  mount: {interval: 500ms, max_attempts: 60}

Environment variable mapping:

	PERSISTFS_ACCOUNT_ID="abc123"
	PERSISTFS_BUCKET="persistfs-workspace"
	PERSISTFS_ACCESS_KEY_ID="..."
	PERSISTFS_SECRET_ACCESS_KEY="..."
	PERSISTFS_MOUNT_PATH="/mnt/persist"
	PERSISTFS_LOG_LEVEL="DEBUG"

The storage endpoint is always derived as https://{account_id}.{storage_domain}
and is empty when no account is configured; an empty endpoint disables the
mount-based paths and routes reconciliation through the direct-upload
fallback.

Credentials are optional. When absent, the attach chain degrades to a single
ambient-credential strategy; explicit-credential strategies are skipped
entirely. Prefer environment variables over files for secrets.
*/
package config
