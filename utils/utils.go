package utils

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"os"
	"path"

	"github.com/Luismorlan/storagepath/utils/dotenv"
	Logger "github.com/Luismorlan/storagepath/utils/log"
)

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

func IsProdEnv() bool {
	return os.Getenv(dotenv.EnvName) == dotenv.ProdEnv
}

// TextToMd5Hash hashes text into a 32 chars hex string, used as default
// object key for fetched files
func TextToMd5Hash(text string) (string, error) {
	hasher := md5.New()
	if _, err := hasher.Write([]byte(text)); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// GetUrlExtNameWithDot returns ".png" for "https://a.com/b/c.png?x=1", and
// empty string if there is no extension. Works on plain file names as well.
func GetUrlExtNameWithDot(rawUrl string) string {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}

// ImmediatePrintError logs the error and returns it as is, handy for
// `return ImmediatePrintError(err)`
func ImmediatePrintError(err error) error {
	if err != nil {
		Logger.Log.Error(err)
	}
	return err
}
