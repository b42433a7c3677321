package service

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseObjectID hex -> ObjectID 的薄封装，路由层和服务层共用
func ParseObjectID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}
