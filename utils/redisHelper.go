package utils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bitbucket.org/campodata/agroledger_backend/config"
)

var mutex sync.Mutex

/* per-item cache */

// cache a single instance under Type:$id
func StoreRedisItem[T any](item *T, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, item, 0)
}

func RetrieveRedisItem[T any](id int) (*T, bool, error) {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	var item T
	exists, err := config.GetRedisObject(key, &item)
	if err != nil || !exists {
		return nil, false, err
	}
	return &item, true, nil
}

// remove an instance, Type:$id
func RemoveRedisItem[T any](id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}

// GetSequence returns the next per-firm sequence number for T.
// Redis is the fast path; the DB max(sequence_no) seeds the counter after a
// cold start, and the uniqueness re-check closes the gap if Redis was flushed.
func GetSequence[T any](ctx context.Context, firmId string) (int64, error) {
	var model T
	mutex.Lock()
	defer mutex.Unlock()
	cacheKey := firmId + "-" + strings.ToLower(GetTypeName[T]()) + "_seq"
	var seqNo int64
	var err error
	db := config.GetDB()

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// if not found in redis, get from db
		if seqNo <= 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
				Where("firm_id = ?", firmId).
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			if dbSeq == nil {
				seqNo = 0
			} else {
				seqNo = *dbSeq
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		// check if sequence number already exists in db
		err = ValidateUnique[T](ctx, firmId, "sequence_no", seqNo, 0)
		if err == nil {
			break
		}
	}
	return seqNo, nil
}
