package app_setting

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	StoreTypeGcs  = "gcs"
	StoreTypeS3   = "s3"
	StoreTypeFake = "fake"
)

// This is the app setting for the storage path api server.
type StorageAppSetting struct {
	// Port the http server listens on, e.g. ":8080"
	LISTEN_ADDRESS string `yaml:"LISTEN_ADDRESS"`
	// One of "gcs", "s3" or "fake".
	STORE_TYPE string `yaml:"STORE_TYPE"`
	// Bucket objects are stored in and deleted from.
	BUCKET string `yaml:"BUCKET"`
	// Host of generated gcs download urls, defaults to firebase storage.
	DOWNLOAD_HOST string `yaml:"DOWNLOAD_HOST"`
	// Path to a service account json, the default credentials are used if empty.
	GCS_CREDENTIALS_FILE string `yaml:"GCS_CREDENTIALS_FILE"`
	S3_REGION            string `yaml:"S3_REGION"`
	// Prefix (usually CloudFront) that s3 objects are served under.
	S3_URL_PREFIX string `yaml:"S3_URL_PREFIX"`
	// Start Datadog tracer and profiler.
	ENABLE_DATADOG bool `yaml:"ENABLE_DATADOG"`
}

func defaultStorageAppSetting() StorageAppSetting {
	return StorageAppSetting{
		LISTEN_ADDRESS: ":8080",
		STORE_TYPE:     StoreTypeFake,
	}
}

// ParseStorageAppSetting reads the yaml setting at path, fields missing from
// the file keep their default.
func ParseStorageAppSetting(path string) (StorageAppSetting, error) {
	c := defaultStorageAppSetting()
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "fail to read app setting %s", path)
	}
	if err = yaml.Unmarshal(yamlFile, &c); err != nil {
		return c, errors.Wrapf(err, "fail to parse app setting %s", path)
	}
	if err = c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c StorageAppSetting) Validate() error {
	switch c.STORE_TYPE {
	case StoreTypeFake:
		return nil
	case StoreTypeGcs:
		if c.BUCKET == "" {
			return errors.New("BUCKET is required for gcs store")
		}
		return nil
	case StoreTypeS3:
		if c.BUCKET == "" || c.S3_URL_PREFIX == "" {
			return errors.New("BUCKET and S3_URL_PREFIX are required for s3 store")
		}
		return nil
	}
	return errors.Errorf("unknown STORE_TYPE: %s", c.STORE_TYPE)
}
