// Package auth は認証サービスを実装する。
//
// ユーザー登録、ログインによるセッショントークンの発行、トークンの検証、
// 認証済みユーザーのプロフィール取得を提供する。
// トークンはサーバー側に保存せず、他のサービスは共有シークレットで独立に検証する。
package auth
