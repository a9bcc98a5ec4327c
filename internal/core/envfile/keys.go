package envfile

// Recognized keys of the substitution file.
const (
	KeyDomain             = "DOMAIN"
	KeyAdminEmail         = "ADMIN_EMAIL"
	KeyMasterPassword     = "MASTER_PASSWORD"
	KeyPortainerAdminHash = "PORTAINER_ADMIN_HASH"
	KeyStorageRootUser    = "MINIO_ROOT_USER"

	KeyStorageBucket    = "MINIO_BUCKET"
	KeyStorageAccessKey = "MINIO_ACCESS_KEY"
	KeyStorageSecretKey = "MINIO_SECRET_KEY"
)

// BaseParams are the values written when a run starts.
type BaseParams struct {
	Domain          string
	AdminEmail      string
	MasterPassword  string
	AdminHash       string
	StorageRootUser string
}

// Base returns the entries written at run start, in file order.
func Base(p BaseParams) []Entry {
	return []Entry{
		{Key: KeyDomain, Value: p.Domain},
		{Key: KeyAdminEmail, Value: p.AdminEmail},
		{Key: KeyMasterPassword, Value: p.MasterPassword},
		{Key: KeyPortainerAdminHash, Value: p.AdminHash},
		{Key: KeyStorageRootUser, Value: p.StorageRootUser},
	}
}

// Storage returns the object-storage entries appended once credentials are known.
func Storage(bucket, accessKey, secretKey string) []Entry {
	return []Entry{
		{Key: KeyStorageBucket, Value: bucket},
		{Key: KeyStorageAccessKey, Value: accessKey},
		{Key: KeyStorageSecretKey, Value: secretKey},
	}
}
