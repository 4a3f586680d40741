package main

import (
	"context"
	"flag"

	"github.com/Luismorlan/storagepath/app_setting"
	"github.com/Luismorlan/storagepath/file_store"
	"github.com/Luismorlan/storagepath/server"
	"github.com/Luismorlan/storagepath/utils"
	"github.com/Luismorlan/storagepath/utils/dotenv"
	. "github.com/Luismorlan/storagepath/utils/flag"
	. "github.com/Luismorlan/storagepath/utils/log"
	"google.golang.org/api/option"
)

var (
	settingPath = flag.String("setting", "config/storage_app_setting.yaml", "path to the app setting yaml")
)

func newStore(setting app_setting.StorageAppSetting) (file_store.CollectedFileStore, error) {
	switch setting.STORE_TYPE {
	case app_setting.StoreTypeGcs:
		opts := []option.ClientOption{}
		if setting.GCS_CREDENTIALS_FILE != "" {
			opts = append(opts, option.WithCredentialsFile(setting.GCS_CREDENTIALS_FILE))
		}
		store, err := file_store.NewGcsFileStore(context.Background(), setting.BUCKET, opts...)
		if err != nil {
			return nil, err
		}
		if setting.DOWNLOAD_HOST != "" {
			store.SetHost(setting.DOWNLOAD_HOST)
		}
		return store, nil
	case app_setting.StoreTypeS3:
		return file_store.NewS3FileStore(setting.BUCKET, setting.S3_REGION, setting.S3_URL_PREFIX)
	}
	return file_store.NewFakeFileStore(), nil
}

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	// pick up flags and env loaded above
	InitLogger()

	setting, err := app_setting.ParseStorageAppSetting(*settingPath)
	if err != nil {
		Log.Fatal("fail to load app setting: ", err)
	}

	opts := server.RouterOptions{}
	if setting.ENABLE_DATADOG {
		utils.StartTracer()
		defer utils.CloseTracer()
		if err := utils.StartProfiler(); err != nil {
			Log.Fatal("fail to start profiler: ", err)
		}
		defer utils.CloseProfiler()
		opts.TraceServiceName = *ServiceName
	}

	store, err := newStore(setting)
	if err != nil {
		Log.Fatal("fail to create store: ", err)
	}
	defer store.CleanUp()

	router := server.NewRouter(store, opts)

	Log.Info("api server starts up with ", setting.STORE_TYPE, " store on ", setting.LISTEN_ADDRESS)
	if err := router.Run(setting.LISTEN_ADDRESS); err != nil {
		Log.Error("api server exits: ", err)
	}
	Log.Info("api server shutdown")
}
