package bot

import (
	"fmt"
	"strconv"
	"strings"

	"roulette-bot/internal/model"
)

const pageTokenPrefix = "inv"

// FormatPageToken builds the callback data for an inventory page button.
func FormatPageToken(userID int64, page int) string {
	return fmt.Sprintf("%s:%d:%d", pageTokenPrefix, userID, page)
}

// ParsePageToken decodes "inv:{user_id}:{page}".
func ParsePageToken(data string) (userID int64, page int, err error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != pageTokenPrefix {
		return 0, 0, fmt.Errorf("%w: page token %q", model.ErrValidation, data)
	}
	userID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: page token user %q", model.ErrValidation, parts[1])
	}
	page, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: page token page %q", model.ErrValidation, parts[2])
	}
	return userID, page, nil
}
