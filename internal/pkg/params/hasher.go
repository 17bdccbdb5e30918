package params

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//Hash computes a deterministic digest of the normalized parameter set.
//The digest does not depend on map key order. Nil values are dropped, so
//an omitted field and an explicit nil hash the same.
func Hash(kind string, engine string, prm map[string]interface{}) string {
	var sb strings.Builder
	sb.WriteString("kind=")
	sb.WriteString(kind)
	sb.WriteString("|engine=")
	sb.WriteString(engine)
	sb.WriteString("|")
	writeValue(&sb, prm)
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func writeValue(sb *strings.Builder, v interface{}) {
	switch tv := v.(type) {
	case nil:
		sb.WriteString("null")
	case map[string]interface{}:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			if tv[k] == nil {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(":")
			writeValue(sb, tv[k])
		}
		sb.WriteString("}")
	case []interface{}:
		// array order is semantically meaningful, keep it
		sb.WriteString("[")
		for i, item := range tv {
			if i > 0 {
				sb.WriteString(",")
			}
			writeValue(sb, item)
		}
		sb.WriteString("]")
	case string:
		sb.WriteString(strconv.Quote(tv))
	case bool:
		sb.WriteString(strconv.FormatBool(tv))
	case float64:
		sb.WriteString(strconv.FormatFloat(tv, 'g', -1, 64))
	case float32:
		sb.WriteString(strconv.FormatFloat(float64(tv), 'g', -1, 64))
	case int:
		sb.WriteString(strconv.Itoa(tv))
	case int64:
		sb.WriteString(strconv.FormatInt(tv, 10))
	default:
		sb.WriteString(fmt.Sprintf("%v", tv))
	}
}
