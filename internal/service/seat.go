package service

import (
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand"
	"slices"
)

// IDMode 決定座位 ID 是否取模
type IDMode string

const (
	// IDModeLegacy 回傳未取模的候選值，只有成員檢查會取模
	IDModeLegacy IDMode = "legacy"
	// IDModeStrict 回傳取模後的值，ID 一定落在 [0, totalPhilosophers)
	IDModeStrict IDMode = "strict"
)

var ErrSeatsExhausted = errors.New("no free seat id within room size probes")

// NextAvailableID 從目前最大 ID 的下一個開始線性尋找可用的座位 ID
func NextAvailableID(participants []int, totalPhilosophers, roomSize int, mode IDMode) (int, error) {
	if len(participants) == 0 {
		return 0, nil
	}

	maxID := slices.Max(participants)
	for i := maxID + 1; i < maxID+1+roomSize; i++ {
		candidate := i
		if totalPhilosophers > 0 {
			candidate = i % totalPhilosophers
		}
		if slices.Contains(participants, candidate) {
			continue
		}
		if mode == IDModeStrict {
			return candidate, nil
		}
		return i, nil
	}
	return -1, ErrSeatsExhausted
}

// AdvanceCounter 計算下一個輪次指標，超過人數一半時歸零
func AdvanceCounter(counter, numPeople int) int {
	next := counter + 1
	// next > numPeople/2，用整數運算避免小數
	if 2*next > numPeople {
		return 0
	}
	return next
}

// removeFirst 移除第一個等於 id 的元素，回傳是否有移除
func removeFirst(participants []int, id int) ([]int, bool) {
	idx := slices.Index(participants, id)
	if idx < 0 {
		return participants, false
	}
	return slices.Delete(participants, idx, idx+1), true
}

func shuffleTexts(texts []string) {
	mrand.Shuffle(len(texts), func(i, j int) {
		texts[i], texts[j] = texts[j], texts[i]
	})
}

const keyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateKey 產生指定長度的隨機房間代碼
func GenerateKey(n int) (string, error) {
	key := make([]byte, n)
	for i := range key {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyCharset))))
		if err != nil {
			return "", err
		}
		key[i] = keyCharset[num.Int64()]
	}
	return string(key), nil
}
