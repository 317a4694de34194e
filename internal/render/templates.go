package render

// Managed-file headers carry a marker so operators know not to hand-edit.

const gunicornTemplate = `# Gunicorn settings for NetBox. Managed by netboxup; manual edits are overwritten.

port = {{ py .port }}
workers = {{ py .workers }}
threads = {{ py .threads }}
timeout = {{ py .timeout }}
max_requests = {{ py .max_requests }}
max_requests_jitter = {{ py .max_requests_jitter }}
`

const settingsTemplate = `# NetBox configuration. Managed by netboxup; manual edits are overwritten.

ALLOWED_HOSTS = {{ py .allowed_hosts }}

DATABASE = {
    'NAME': {{ py .database_name }},
    'USER': {{ py .database_user }},
    'PASSWORD': {{ py .database_password }},
    'HOST': {{ py .database_host }},
    'PORT': {{ py .database_port }},
    'CONN_MAX_AGE': {{ py .database_conn_max_age }},
}

REDIS = {{ py .redis }}

EMAIL = {{ py .email }}

SECRET_KEY = {{ py .secret_key }}

ADMINS = {{ py .admins }}

BANNER_TOP = {{ py .banner_top }}
BANNER_BOTTOM = {{ py .banner_bottom }}
BANNER_LOGIN = {{ py .banner_login }}

BASE_PATH = {{ py .base_path }}

DEBUG = {{ py .debug }}

ENFORCE_GLOBAL_UNIQUE = {{ py .enforce_global_unique }}

EXEMPT_VIEW_PERMISSIONS = {{ py .exempt_view_permissions }}

LOGIN_REQUIRED = {{ py .login_required }}
`
