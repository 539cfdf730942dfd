package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireFirmPostingLock serializes posting per firm across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the posting transaction.
func AcquireFirmPostingLock(tx *gorm.DB, firmId string) error {
	lockName := fmt.Sprintf("posting:%s", firmId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for firm_id=%s", firmId)
	}
	return nil
}

func ReleaseFirmPostingLock(tx *gorm.DB, firmId string) {
	lockName := fmt.Sprintf("posting:%s", firmId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
